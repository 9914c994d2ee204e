package api

import (
	"net/http"

	"github.com/okian/sunwatch/internal/app/watchface"
	"github.com/okian/sunwatch/internal/domain/display"
)

// WatchReader is the read side of the watch face.
type WatchReader interface {
	Display() display.Display
	Frame() watchface.Frame
}

// WatchHandler serves the watch's current state.
type WatchHandler struct {
	watch WatchReader
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(watch WatchReader) *WatchHandler {
	return &WatchHandler{watch: watch}
}

// HandleDisplay handles GET /display requests.
func (h *WatchHandler) HandleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.watch.Display())
}

// HandleFrame handles GET /frame requests with a frame composed now.
func (h *WatchHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.watch.Frame())
}
