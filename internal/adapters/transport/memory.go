package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

const defaultBufferSize = 1024

type pending struct {
	item Item
	res  chan Result
}

type subscriber struct {
	id uint64
	h  Handler
}

// Memory pairs a phone and a watch living in the same process. It retains
// the last item per path so Fetch works like a data layer read.
type Memory struct {
	events     chan pending
	bufferSize int

	// mu guards closed and sends on events.
	mu     sync.RWMutex
	closed bool

	// dataMu guards retained and subs.
	dataMu   sync.Mutex
	retained map[string]Item
	subs     map[string][]subscriber
	nextID   uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	now    func() time.Time
	logger logger.Logger
}

// NewMemory creates a Memory transport and starts its dispatch goroutine.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		bufferSize: defaultBufferSize,
		retained:   make(map[string]Item),
		subs:       make(map[string][]subscriber),
		done:       make(chan struct{}),
		now:        time.Now,
		logger:     logger.Get().Named("transport.memory"),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.events = make(chan pending, m.bufferSize)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	metrics.UpdateTransportBuffer(0)

	go m.run()
	return m
}

// Publish retains fields on path and queues them for dispatch.
func (m *Memory) Publish(ctx context.Context, path string, fields model.Fields) <-chan Result {
	item := Item{
		ID:     uuid.NewString(),
		Path:   path,
		Fields: fields.Clone(),
		At:     m.now(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		metrics.RecordErrorByComponent("transport", "closed")
		return resolved(Result{ID: item.ID, Err: failure(ErrClosed)})
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("transport", "context_cancelled")
		return resolved(Result{ID: item.ID, Err: failure(err)})
	}

	res := make(chan Result, 1)

	m.dataMu.Lock()
	defer m.dataMu.Unlock()

	select {
	case m.events <- pending{item: item, res: res}:
		m.retained[path] = item
		metrics.UpdateTransportBuffer(len(m.events))
		return res
	default:
		metrics.RecordErrorByComponent("transport", "buffer_full")
		return resolved(Result{ID: item.ID, Err: failure(ErrFull)})
	}
}

// Subscribe registers h for items published on path.
func (m *Memory) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, failure(ErrClosed)
	}

	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs[path] = append(m.subs[path], subscriber{id: id, h: h})

	return &memorySubscription{m: m, path: path, id: id}, nil
}

// Fetch returns the last item published on path.
func (m *Memory) Fetch(ctx context.Context, path string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	m.dataMu.Lock()
	defer m.dataMu.Unlock()

	item, ok := m.retained[path]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	item.Fields = item.Fields.Clone()
	return item, nil
}

// Close stops accepting items, dispatches what is already queued and waits
// for the dispatch goroutine to exit.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.events)
	m.mu.Unlock()

	<-m.done
	m.cancel()
	return nil
}

// Len returns the number of items waiting for dispatch.
func (m *Memory) Len() int {
	size := len(m.events)
	metrics.UpdateTransportBuffer(size)
	return size
}

func (m *Memory) run() {
	defer close(m.done)

	for p := range m.events {
		metrics.UpdateTransportBuffer(len(m.events))
		for _, s := range m.handlers(p.item.Path) {
			s.h(m.ctx, p.item)
		}
		metrics.RecordDelivery(p.item.Path)
		m.logger.Debug(m.ctx, "item dispatched",
			logger.String("id", p.item.ID),
			logger.String("path", p.item.Path),
		)
		p.res <- Result{ID: p.item.ID}
	}
}

func (m *Memory) handlers(path string) []subscriber {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	return append([]subscriber(nil), m.subs[path]...)
}

func (m *Memory) unsubscribe(path string, id uint64) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()

	subs := m.subs[path]
	for i, s := range subs {
		if s.id == id {
			m.subs[path] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[path]) == 0 {
		delete(m.subs, path)
	}
}

type memorySubscription struct {
	m    *Memory
	path string
	id   uint64
	once sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() { s.m.unsubscribe(s.path, s.id) })
	return nil
}
