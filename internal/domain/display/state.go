// Package display holds the watch's current display state.
package display

import (
	"sync/atomic"
	"time"

	"github.com/okian/sunwatch/internal/domain/icon"
	"github.com/okian/sunwatch/internal/domain/temperature"
)

// Display is an immutable view of the weather shown on the watch.
type Display struct {
	Max           string    `json:"max"`
	Min           string    `json:"min"`
	Icon          icon.Icon `json:"icon"`
	ConditionCode int       `json:"condition_code"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Default is the state shown before any snapshot arrives.
func Default() Display {
	return Display{
		Max:  temperature.Placeholder,
		Min:  temperature.Placeholder,
		Icon: icon.Unknown,
	}
}

// State owns the current Display. There is a single writer (the transport
// dispatch goroutine) and any number of readers; a reader always sees one
// whole Display.
type State struct {
	cur atomic.Pointer[Display]
}

// NewState returns a State holding Default.
func NewState() *State {
	s := &State{}
	d := Default()
	s.cur.Store(&d)
	return s
}

// Load returns the current Display.
func (s *State) Load() Display {
	if d := s.cur.Load(); d != nil {
		return *d
	}
	return Default()
}

// Store replaces the current Display.
func (s *State) Store(d Display) {
	s.cur.Store(&d)
}
