// Package transport defines the paired-device push/subscribe channel between
// the phone and the watch.
//
// Every implementation runs handlers on a single dispatch goroutine, so
// handlers never run concurrently with each other. A handler must not wait on
// a Result of its own transport.
package transport

import (
	"context"
	"time"

	"github.com/okian/sunwatch/internal/domain/model"
)

// Item is one data item delivered on a path.
type Item struct {
	ID     string
	Path   string
	Fields model.Fields
	At     time.Time
}

// Result is the delivery outcome of one Publish.
type Result struct {
	ID  string
	Err error
}

// Handler receives items for a subscribed path.
type Handler func(ctx context.Context, item Item)

// Subscription is an active handler registration.
type Subscription interface {
	Unsubscribe() error
}

// Transport pushes data items to the peer and delivers the peer's items.
type Transport interface {
	// Publish sends fields on path. The returned channel is buffered and
	// receives exactly one Result.
	Publish(ctx context.Context, path string, fields model.Fields) <-chan Result

	// Subscribe registers h for items on path.
	Subscribe(ctx context.Context, path string, h Handler) (Subscription, error)

	// Fetch returns the last item retained on path, or ErrNotFound.
	Fetch(ctx context.Context, path string) (Item, error)

	// Close stops dispatch. Later publishes fail with ErrTransportFailure.
	Close() error
}

// resolved returns a channel already holding r.
func resolved(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	return ch
}
