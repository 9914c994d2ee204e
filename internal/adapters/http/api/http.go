// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/segmentio/encoding/json"

	"github.com/okian/sunwatch/internal/app/watchface"
	"github.com/okian/sunwatch/internal/domain/display"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Display and Frame read the watch side.
	Display() display.Display
	Frame() watchface.Frame
	Palette() watchface.Palette

	// Sync pushes the phone's cached forecast to the watch.
	Sync(ctx context.Context) error

	// OverwritePalette merges u into the stored palette and publishes it.
	OverwritePalette(ctx context.Context, u watchface.PaletteUpdate) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	watchHandler   *WatchHandler
	syncHandler    *SyncHandler
	paletteHandler *PaletteHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		watchHandler:   NewWatchHandler(deps),
		syncHandler:    NewSyncHandler(deps),
		paletteHandler: NewPaletteHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/display", MetricsMiddleware(s.watchHandler.HandleDisplay, "display"))
	mux.HandleFunc("/frame", MetricsMiddleware(s.watchHandler.HandleFrame, "frame"))
	mux.HandleFunc("/sync", MetricsMiddleware(s.syncHandler.HandleSync, "sync"))
	mux.HandleFunc("/palette", MetricsMiddleware(s.paletteHandler.HandlePalette, "palette"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
