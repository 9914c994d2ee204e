// Package syncer reads the phone's cached forecast and pushes it to the watch.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/sunwatch/internal/adapters/repository"
	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/internal/domain/temperature"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

// Sync outcomes recorded in metrics.
const (
	outcomePublished = "published"
	outcomeNoData    = "no_data"
	outcomeError     = "error"
)

// Publisher is the fire-and-forget publish the syncer relies on.
type Publisher interface {
	Publish(ctx context.Context, snap model.WeatherSnapshot, cb func(transport.Result))
}

// Syncer publishes the most recent cached forecast for one location.
type Syncer struct {
	store    repository.Store
	pub      Publisher
	location string
	unit     temperature.Unit
	now      func() time.Time
	logger   logger.Logger

	mu       sync.RWMutex
	last     model.WeatherSnapshot
	lastAt   time.Time
	lastErr  error
	runCount int64
}

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithUnit sets the unit temperatures are converted to before publishing.
func WithUnit(u temperature.Unit) Option {
	return func(s *Syncer) {
		if u != "" {
			s.unit = u
		}
	}
}

// WithClock sets the clock that decides which day is today.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the syncer.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Syncer for location.
func New(store repository.Store, pub Publisher, location string, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		pub:      pub,
		location: location,
		unit:     temperature.Metric,
		now:      time.Now,
		logger:   logger.Get().Named("syncer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reads today's forecast, or the most recent before it, and publishes
// it. A missing cache row returns an error wrapping repository.ErrNotFound.
func (s *Syncer) Sync(ctx context.Context) error {
	today := s.now()
	rec, err := s.store.Latest(ctx, s.location, today)
	if err != nil {
		s.finish(model.WeatherSnapshot{}, err)
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordSyncRun(outcomeNoData)
			s.logger.Info(ctx, "no cached weather to sync",
				logger.String("location", s.location),
				logger.String("day", today.Format(repository.DayLayout)),
			)
		} else {
			metrics.RecordSyncRun(outcomeError)
			metrics.RecordErrorByComponent("syncer", "store")
			s.logger.Error(ctx, "reading cached weather failed", logger.Error(err))
		}
		return fmt.Errorf("sync %s: %w", s.location, err)
	}

	snap := model.WeatherSnapshot{
		ConditionCode:  rec.ConditionCode,
		MaxTemperature: temperature.Convert(rec.Max, s.unit),
		MinTemperature: temperature.Convert(rec.Min, s.unit),
	}

	// the delivery outlives the caller, e.g. an HTTP request
	s.pub.Publish(context.WithoutCancel(ctx), snap, func(r transport.Result) {
		if r.Err == nil {
			metrics.UpdateLastSync(s.now().Unix())
		}
	})

	s.finish(snap, nil)
	metrics.RecordSyncRun(outcomePublished)
	s.logger.Debug(ctx, "weather sync published",
		logger.String("location", s.location),
		logger.String("day", rec.Day.Format(repository.DayLayout)),
		logger.Int("code", snap.ConditionCode),
		logger.String("unit", string(s.unit)),
	)
	return nil
}

func (s *Syncer) finish(snap model.WeatherSnapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCount++
	s.lastErr = err
	s.lastAt = s.now()
	if err == nil {
		s.last = snap
	}
}

// Stats reports the syncer's recent activity.
func (s *Syncer) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"location": s.location,
		"unit":     string(s.unit),
		"runs":     s.runCount,
	}
	if !s.lastAt.IsZero() {
		stats["lastRun"] = s.lastAt.UTC().Format(time.RFC3339)
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	} else if s.runCount > 0 {
		stats["lastSnapshot"] = s.last
	}
	return stats
}
