package watchface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

const defaultTickInterval = time.Second

// Engine is the watch face state machine. Hosts drive it with SetVisible and
// SetAmbient and receive output through the registered handlers.
type Engine struct {
	transport transport.Transport
	state     *display.State
	consumer  *Consumer
	palette   atomic.Pointer[Palette]
	ambient   atomic.Bool

	// applyMu serializes applying an item and notifying snapshot handlers,
	// across transport dispatch and SetVisible fetches.
	applyMu sync.Mutex

	// mu guards visible, subs and the ticker.
	mu       sync.Mutex
	visible  bool
	subs     []transport.Subscription
	stopTick chan struct{}

	handlersMu   sync.RWMutex
	onSnapshot   []func(display.Display)
	onTick       []func(Frame)
	onVisibility []func(bool)

	tickInterval time.Duration
	now          func() time.Time
	logger       logger.Logger
}

// NewEngine creates a hidden, interactive Engine over t.
func NewEngine(t transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		transport:    t,
		state:        display.NewState(),
		tickInterval: defaultTickInterval,
		now:          time.Now,
		logger:       logger.Get().Named("watchface"),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.consumer = NewConsumer(e.state, e.logger.Named("consumer"))
	e.consumer.now = e.now
	p := DefaultPalette()
	e.palette.Store(&p)
	return e
}

// OnSnapshotReceived registers fn to run after each applied weather item.
// Snapshot handlers run one at a time and in apply order, whether the item
// came from the transport or from the fetch in SetVisible. They must not call
// SetVisible.
func (e *Engine) OnSnapshotReceived(fn func(display.Display)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.onSnapshot = append(e.onSnapshot, fn)
}

// OnTick registers fn to receive every composed frame.
func (e *Engine) OnTick(fn func(Frame)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.onTick = append(e.onTick, fn)
}

// OnVisibilityChanged registers fn to run when visibility flips.
func (e *Engine) OnVisibilityChanged(fn func(bool)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.onVisibility = append(e.onVisibility, fn)
}

// SetVisible subscribes to the weather and palette paths and applies what the
// transport already holds when the face becomes visible, and drops the
// subscriptions when it is hidden.
func (e *Engine) SetVisible(ctx context.Context, visible bool) error {
	e.mu.Lock()
	if e.visible == visible {
		e.mu.Unlock()
		return nil
	}

	if visible {
		if err := e.subscribe(ctx); err != nil {
			e.mu.Unlock()
			return err
		}
	} else {
		e.unsubscribe(ctx)
	}
	e.visible = visible
	e.updateTimer()
	e.mu.Unlock()

	metrics.UpdateWatchVisible(visible)
	e.logger.Debug(ctx, "visibility changed", logger.Bool("visible", visible))

	if visible {
		e.fetchRetained(ctx)
	}

	e.handlersMu.RLock()
	handlers := append(([]func(bool))(nil), e.onVisibility...)
	e.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(visible)
	}

	if visible {
		e.emit()
	}
	return nil
}

// SetAmbient switches between interactive and ambient mode. A visible face
// redraws once on every switch.
func (e *Engine) SetAmbient(ambient bool) {
	if e.ambient.Swap(ambient) == ambient {
		return
	}

	e.mu.Lock()
	visible := e.visible
	e.updateTimer()
	e.mu.Unlock()

	if visible {
		e.emit()
	}
}

// Visible reports whether the face is visible.
func (e *Engine) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}

// Ambient reports whether the face is in ambient mode.
func (e *Engine) Ambient() bool { return e.ambient.Load() }

// TimerRunning reports whether the interactive ticker is active.
func (e *Engine) TimerRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTick != nil
}

// Display returns the current display state.
func (e *Engine) Display() display.Display { return e.state.Load() }

// Palette returns the interactive palette.
func (e *Engine) Palette() Palette { return *e.palette.Load() }

// Frame composes a frame for the current time without notifying handlers.
func (e *Engine) Frame() Frame {
	return Compose(e.now(), e.state.Load(), e.Palette(), e.ambient.Load())
}

// Close hides the face, which drops its subscriptions and stops the ticker.
func (e *Engine) Close(ctx context.Context) error {
	return e.SetVisible(ctx, false)
}

// subscribe is called with mu held.
func (e *Engine) subscribe(ctx context.Context) error {
	weather, err := e.transport.Subscribe(ctx, model.PathWeather, e.handleWeather)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", model.PathWeather, err)
	}
	palette, err := e.transport.Subscribe(ctx, model.PathPalette, e.handlePalette)
	if err != nil {
		_ = weather.Unsubscribe()
		return fmt.Errorf("subscribe %s: %w", model.PathPalette, err)
	}
	e.subs = []transport.Subscription{weather, palette}
	return nil
}

// unsubscribe is called with mu held.
func (e *Engine) unsubscribe(ctx context.Context) {
	for _, s := range e.subs {
		if err := s.Unsubscribe(); err != nil {
			e.logger.Warn(ctx, "unsubscribe failed", logger.Error(err))
		}
	}
	e.subs = nil
}

func (e *Engine) fetchRetained(ctx context.Context) {
	for _, path := range []string{model.PathWeather, model.PathPalette} {
		item, err := e.transport.Fetch(ctx, path)
		if errors.Is(err, transport.ErrNotFound) {
			continue
		}
		if err != nil {
			metrics.RecordErrorByComponent("watchface", "fetch")
			e.logger.Warn(ctx, "fetching retained item failed", logger.String("path", path), logger.Error(err))
			continue
		}
		if path == model.PathWeather {
			e.handleWeather(ctx, item)
		} else {
			e.handlePalette(ctx, item)
		}
	}
}

func (e *Engine) handleWeather(ctx context.Context, item transport.Item) {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.consumer.OnSnapshotReceived(ctx, item)
	d := e.state.Load()

	e.handlersMu.RLock()
	handlers := append(([]func(display.Display))(nil), e.onSnapshot...)
	e.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(d)
	}
}

func (e *Engine) handlePalette(ctx context.Context, item transport.Item) {
	e.applyMu.Lock()
	next, rejected := e.Palette().Merge(item.Fields)
	e.palette.Store(&next)
	e.applyMu.Unlock()

	for _, key := range rejected {
		metrics.RecordDecodeError(key)
		e.logger.Warn(ctx, "ignoring unusable palette color", logger.String("field", key))
	}
	e.logger.Debug(ctx, "palette updated",
		logger.String("background", next.Background),
		logger.String("hours", next.Hours),
	)
}

// updateTimer starts or stops the ticker so that it runs only while the
// face is visible and interactive. Called with mu held.
func (e *Engine) updateTimer() {
	run := e.visible && !e.ambient.Load()
	switch {
	case run && e.stopTick == nil:
		e.stopTick = make(chan struct{})
		go e.tick(e.stopTick)
	case !run && e.stopTick != nil:
		close(e.stopTick)
		e.stopTick = nil
	}
}

// tick fires on interval boundaries of the wall clock, so a one second
// interval lands on the turn of each second.
func (e *Engine) tick(stop <-chan struct{}) {
	timer := time.NewTimer(e.untilNextTick())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			select {
			case <-stop:
				return
			default:
			}
			e.emit()
			timer.Reset(e.untilNextTick())
		}
	}
}

func (e *Engine) untilNextTick() time.Duration {
	ms := e.tickInterval.Milliseconds()
	if ms <= 0 {
		return e.tickInterval
	}
	return time.Duration(ms-e.now().UnixMilli()%ms) * time.Millisecond
}

func (e *Engine) emit() {
	f := e.Frame()
	metrics.RecordFrame(f.mode())

	e.handlersMu.RLock()
	handlers := append(([]func(Frame))(nil), e.onTick...)
	e.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(f)
	}
}
