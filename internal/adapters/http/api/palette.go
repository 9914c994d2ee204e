package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/segmentio/encoding/json"

	"github.com/okian/sunwatch/internal/app/watchface"
)

const maxPaletteBody = 4 << 10

// PaletteDependencies reads and updates the watch palette.
type PaletteDependencies interface {
	Palette() watchface.Palette
	OverwritePalette(ctx context.Context, u watchface.PaletteUpdate) error
}

// PaletteHandler handles palette requests.
type PaletteHandler struct {
	deps PaletteDependencies
}

// NewPaletteHandler creates a new palette handler.
func NewPaletteHandler(deps PaletteDependencies) *PaletteHandler {
	return &PaletteHandler{deps: deps}
}

// HandlePalette handles GET and PUT /palette requests.
func (h *PaletteHandler) HandlePalette(w http.ResponseWriter, r *http.Request) {
	const op = "api.palette"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Palette())
	case http.MethodPut:
		var u watchface.PaletteUpdate
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaletteBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&u); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := u.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.OverwritePalette(r.Context(), u); err != nil {
			if errors.Is(err, watchface.ErrInvalidPalette) {
				writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
				return
			}
			writeError(w, http.StatusInternalServerError, "palette_failed", WrapKind(op, ErrPaletteFailed, err))
			return
		}
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	default:
		http.NotFound(w, r)
	}
}
