// Package publisher pushes weather snapshots from the phone to the watch.
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

// Publish outcomes recorded in metrics.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Publisher delivers snapshots over a transport. It never retries or queues;
// the transport serializes concurrent callers.
type Publisher struct {
	transport transport.Transport
	logger    logger.Logger
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithLogger sets a custom logger for the publisher.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Publisher over t.
func New(t transport.Transport, opts ...Option) *Publisher {
	p := &Publisher{
		transport: t,
		logger:    logger.Get().Named("publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends snap and returns before delivery is confirmed. The outcome is
// logged, counted and then handed to cb when cb is not nil.
func (p *Publisher) Publish(ctx context.Context, snap model.WeatherSnapshot, cb func(transport.Result)) {
	start := time.Now()
	ch := p.transport.Publish(ctx, model.PathWeather, snap.Fields())

	go func() {
		r := <-ch
		p.observe(ctx, snap, r, time.Since(start))
		if cb != nil {
			cb(r)
		}
	}()
}

// PublishAndWait sends snap and waits for the delivery outcome.
func (p *Publisher) PublishAndWait(ctx context.Context, snap model.WeatherSnapshot) error {
	start := time.Now()
	ch := p.transport.Publish(ctx, model.PathWeather, snap.Fields())

	select {
	case r := <-ch:
		p.observe(ctx, snap, r, time.Since(start))
		return r.Err
	case <-ctx.Done():
		metrics.RecordPublish(model.PathWeather, outcomeFailure)
		return ctx.Err()
	}
}

func (p *Publisher) observe(ctx context.Context, snap model.WeatherSnapshot, r transport.Result, took time.Duration) {
	metrics.RecordPublishLatency(float64(took.Milliseconds()))

	if r.Err != nil {
		metrics.RecordPublish(model.PathWeather, outcomeFailure)
		metrics.RecordErrorByComponent("publisher", errorType(r.Err))
		p.logger.Warn(ctx, "weather snapshot not delivered",
			logger.String("id", r.ID),
			logger.Int("code", snap.ConditionCode),
			logger.Error(r.Err),
		)
		return
	}

	metrics.RecordPublish(model.PathWeather, outcomeSuccess)
	p.logger.Debug(ctx, "weather snapshot delivered",
		logger.String("id", r.ID),
		logger.Int("code", snap.ConditionCode),
		logger.Float64("max", snap.MaxTemperature),
		logger.Float64("min", snap.MinTemperature),
		logger.Duration("took", took),
	)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, transport.ErrClosed):
		return "closed"
	case errors.Is(err, transport.ErrFull):
		return "buffer_full"
	case errors.Is(err, transport.ErrNack):
		return "nack"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "transport"
	}
}
