package watchface

import (
	"time"

	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTickInterval sets the interactive redraw rate.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithClock sets the clock frames are composed from.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithState sets the display state the engine writes to.
func WithState(s *display.State) Option {
	return func(e *Engine) {
		if s != nil {
			e.state = s
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
