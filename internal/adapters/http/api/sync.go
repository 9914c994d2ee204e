package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/sunwatch/internal/adapters/repository"
)

// Syncer triggers a phone-to-watch sync.
type Syncer interface {
	Sync(ctx context.Context) error
}

// SyncHandler handles on-demand sync requests.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(s Syncer) *SyncHandler {
	return &SyncHandler{syncer: s}
}

// HandleSync handles POST /sync requests. The publish is fire-and-forget,
// so 202 means the snapshot was handed to the transport.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if err := h.syncer.Sync(r.Context()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_data", WrapKind(op, ErrNoData, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "sync_failed", WrapKind(op, ErrSyncFailed, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
