// Package service wires the phone-side syncer and the watch-side face over a
// shared transport and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/okian/sunwatch/internal/adapters/repository"
	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/app/publisher"
	"github.com/okian/sunwatch/internal/app/syncer"
	"github.com/okian/sunwatch/internal/app/watchface"
	"github.com/okian/sunwatch/internal/config"
	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/internal/domain/temperature"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

const stopTimeout = 5 * time.Second

// Service owns the store, transport, producer and watch face.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store     repository.Store
	transport transport.Transport
	publisher *publisher.Publisher
	syncer    *syncer.Syncer
	scheduler *syncer.Scheduler
	engine    *watchface.Engine

	// injected components are not closed by Stop
	ownStore     bool
	ownTransport bool

	now     func() time.Time
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the weather cache instead of opening one from config.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithTransport sets the paired-device transport instead of building one
// from config.
func WithTransport(t transport.Transport) Option {
	return func(svc *Service) {
		if t != nil {
			svc.transport = t
		}
	}
}

// WithClock sets the clock used by the syncer and the watch face.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New constructs a Service from cfg. A nil cfg uses config defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the components, schedules the sync and shows the watch face.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	unit, err := temperature.ParseUnit(s.cfg.Units)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.logger.Info(ctx, "starting sunwatch service...")

	if s.store == nil {
		store, err := repository.NewSQLStore(ctx, s.cfg.StoreDriver, s.cfg.StoreDSN,
			repository.WithMaxOpenConns(s.cfg.StoreMaxOpenConns),
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			return fmt.Errorf("start: open store: %w", err)
		}
		s.store, s.ownStore = store, true
	}

	if s.transport == nil {
		t, err := s.openTransport(ctx)
		if err != nil {
			s.closeOwned()
			return fmt.Errorf("start: open transport: %w", err)
		}
		s.transport, s.ownTransport = t, true
	}

	s.publisher = publisher.New(s.transport, publisher.WithLogger(s.logger.Named("publisher")))
	s.syncer = syncer.New(s.store, s.publisher, s.cfg.Location,
		syncer.WithUnit(unit),
		syncer.WithClock(s.now),
		syncer.WithLogger(s.logger.Named("syncer")),
	)
	s.engine = watchface.NewEngine(s.transport,
		watchface.WithTickInterval(s.cfg.TickInterval()),
		watchface.WithClock(s.now),
		watchface.WithLogger(s.logger.Named("watchface")),
	)

	if err := s.engine.SetVisible(ctx, true); err != nil {
		s.closeOwned()
		return fmt.Errorf("start: show watch face: %w", err)
	}

	s.scheduler = syncer.NewScheduler(s.syncer, s.cfg.SyncInterval())
	if err := s.scheduler.Start(); err != nil {
		_ = s.engine.Close(ctx)
		s.closeOwned()
		return fmt.Errorf("start: schedule sync: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "sunwatch service started",
		logger.String("location", s.cfg.Location),
		logger.String("units", string(unit)),
		logger.String("transport", s.cfg.Transport),
		logger.Duration("syncInterval", s.cfg.SyncInterval()),
	)
	return nil
}

func (s *Service) openTransport(ctx context.Context) (transport.Transport, error) {
	switch s.cfg.Transport {
	case config.TransportAMQP:
		opts := []transport.AMQPOption{
			transport.WithExchange(s.cfg.AMQPExchange),
			transport.WithConfirmTimeout(s.cfg.AMQPConfirmTimeout()),
			transport.WithAMQPLogger(s.logger.Named("transport.amqp")),
		}
		if s.cfg.AMQPTLS {
			opts = append(opts, transport.WithTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
		}
		return transport.NewAMQP(ctx, s.cfg.AMQPDSN, opts...)
	default:
		return transport.NewMemory(
			transport.WithBufferSize(s.cfg.EventBuffer),
			transport.WithClock(s.now),
			transport.WithMemoryLogger(s.logger.Named("transport.memory")),
		), nil
	}
}

// closeOwned releases what Start opened itself.
func (s *Service) closeOwned() {
	if s.ownTransport && s.transport != nil {
		_ = s.transport.Close()
		s.transport, s.ownTransport = nil, false
	}
	if s.ownStore && s.store != nil {
		_ = s.store.Close()
		s.store, s.ownStore = nil, false
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping sunwatch service...")

	s.scheduler.Stop()
	if err := s.engine.Close(ctx); err != nil {
		s.logger.Warn(ctx, "hiding watch face failed", logger.Error(err))
	}
	s.closeOwned()

	s.scheduler, s.syncer, s.publisher, s.engine = nil, nil, nil, nil
	s.started = false
	s.logger.Info(ctx, "sunwatch service stopped")
}

// Display returns what the watch shows now.
func (s *Service) Display() display.Display {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return display.Default()
	}
	return s.engine.Display()
}

// Frame composes a frame at the current time.
func (s *Service) Frame() watchface.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return watchface.Compose(s.now(), display.Default(), watchface.DefaultPalette(), false)
	}
	return s.engine.Frame()
}

// Palette returns the watch-face palette.
func (s *Service) Palette() watchface.Palette {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return watchface.DefaultPalette()
	}
	return s.engine.Palette()
}

// Sync publishes the cached forecast now.
func (s *Service) Sync(ctx context.Context) error {
	s.mu.RLock()
	sy := s.syncer
	started := s.started
	s.mu.RUnlock()

	if !started || sy == nil {
		return ErrNotStarted
	}
	return sy.Sync(ctx)
}

// OverwritePalette merges u into the stored palette and publishes it.
func (s *Service) OverwritePalette(ctx context.Context, u watchface.PaletteUpdate) error {
	s.mu.RLock()
	t := s.transport
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return watchface.OverwritePalette(ctx, t, u)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"location":  s.cfg.Location,
		"units":     s.cfg.Units,
		"transport": s.cfg.Transport,
	}

	if s.started {
		stats["sync"] = s.syncer.Stats()
		stats["watch"] = map[string]interface{}{
			"visible":      s.engine.Visible(),
			"ambient":      s.engine.Ambient(),
			"timerRunning": s.engine.TimerRunning(),
			"display":      s.engine.Display(),
			"palette":      s.engine.Palette(),
		}
		if m, ok := s.transport.(*transport.Memory); ok {
			n := m.Len()
			stats["transportBuffer"] = n
			metrics.UpdateTransportBuffer(n)
		}
	}

	return stats
}
