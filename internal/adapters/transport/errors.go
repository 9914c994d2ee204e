package transport

import (
	"errors"
	"fmt"
)

// Sentinel kinds for transport errors.
var (
	ErrTransportFailure = errors.New("transport failure")
	ErrClosed           = errors.New("transport closed")
	ErrFull             = errors.New("transport buffer full")
	ErrNotFound         = errors.New("no data item on path")
	ErrNack             = errors.New("broker rejected publish")
)

func failure(err error) error {
	return fmt.Errorf("%w: %w", ErrTransportFailure, err)
}
