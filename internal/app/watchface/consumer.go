// Package watchface is the watch side: it applies snapshots from the phone to
// the display state and composes frames for the render surface.
package watchface

import (
	"context"
	"time"

	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/internal/domain/icon"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/internal/domain/temperature"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

// Consumer applies weather items to a display.State. It is the only writer
// of that state and never blocks.
type Consumer struct {
	state  *display.State
	now    func() time.Time
	logger logger.Logger
}

// NewConsumer creates a Consumer writing to state.
func NewConsumer(state *display.State, l logger.Logger) *Consumer {
	if l == nil {
		l = logger.Get().Named("watchface.consumer")
	}
	return &Consumer{state: state, now: time.Now, logger: l}
}

// OnSnapshotReceived decodes item and replaces the display in one store.
// A field that is missing or unusable keeps its previous value.
func (c *Consumer) OnSnapshotReceived(ctx context.Context, item transport.Item) {
	if item.Path != model.PathWeather {
		return
	}

	next := c.state.Load()
	u := model.DecodeSnapshot(item.Fields)

	if u.ConditionCode != nil {
		code := *u.ConditionCode
		next.ConditionCode = code
		next.Icon = icon.Resolve(code)
		if !icon.Known(code) {
			metrics.RecordUnknownConditionCode()
			c.logger.Info(ctx, "unknown condition code", logger.Int("code", code))
		}
	} else {
		c.rejectIfPresent(ctx, item.Fields, model.KeyWeatherID)
	}

	next.Max = c.temperature(ctx, item.Fields, model.KeyMaxTemp, u.MaxTemp, next.Max)
	next.Min = c.temperature(ctx, item.Fields, model.KeyMinTemp, u.MinTemp, next.Min)

	next.UpdatedAt = item.At
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = c.now()
	}

	c.state.Store(next)
	metrics.RecordSnapshotApplied()
	c.logger.Debug(ctx, "display updated",
		logger.String("id", item.ID),
		logger.String("max", next.Max),
		logger.String("min", next.Min),
		logger.String("icon", string(next.Icon)),
	)
}

func (c *Consumer) temperature(ctx context.Context, f model.Fields, key string, raw *string, prev string) string {
	if raw == nil {
		c.rejectIfPresent(ctx, f, key)
		return prev
	}
	s, err := temperature.FormatString(*raw)
	if err != nil {
		metrics.RecordDecodeError(key)
		c.logger.Warn(ctx, "keeping previous temperature", logger.String("field", key), logger.Error(err))
		return prev
	}
	return s
}

// rejectIfPresent counts a field that was sent but could not be decoded.
func (c *Consumer) rejectIfPresent(ctx context.Context, f model.Fields, key string) {
	if v, ok := f[key]; ok {
		metrics.RecordDecodeError(key)
		c.logger.Warn(ctx, "ignoring undecodable field", logger.String("field", key), logger.Any("value", v))
	}
}
