package syncer

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/okian/sunwatch/pkg/logger"
)

const (
	defaultSyncInterval = 15 * time.Minute
	syncTimeout         = 30 * time.Second
)

// Scheduler runs Sync on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	syncer    *Syncer
	interval  time.Duration
	logger    logger.Logger
}

// NewScheduler creates a Scheduler for s. A non-positive interval falls back
// to fifteen minutes.
func NewScheduler(s *Syncer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		syncer:    s,
		interval:  interval,
		logger:    s.logger.Named("scheduler"),
	}
}

// Start schedules the job and starts the scheduler. The first run happens
// right away; runs never overlap.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		// errors are logged and counted by Sync
		_ = s.syncer.Sync(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info(context.Background(), "sync scheduled", logger.Duration("interval", s.interval))
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
