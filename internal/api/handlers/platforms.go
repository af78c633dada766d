package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// PlatformsHandler checks platform connections.
type PlatformsHandler struct {
	*Base
	dash Dashboard
}

// NewPlatformsHandler creates a new platforms handler.
func NewPlatformsHandler(dash Dashboard, logger *slog.Logger) *PlatformsHandler {
	return &PlatformsHandler{
		Base: NewBase(logger),
		dash: dash,
	}
}

// Test handles POST /api/platforms/{id}/test. A platform that rejects the
// credentials still answers 200 with ok=false.
func (h *PlatformsHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := platform.Parse(chi.URLParam(r, "id"))
	if err != nil || !platform.IsKnown(id) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("platform"))
		return
	}

	resp := dto.ConnectionTestResponse{Platform: string(id), OK: true, Message: "connection ok"}
	if err := h.dash.TestConnection(r.Context(), id); err != nil {
		if errors.Is(err, platforms.ErrUnknownPlatform) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("platform"))
			return
		}
		h.logger.Warn("platform connection test failed", "platform", id, "error", err)
		resp.OK = false
		resp.Code = dto.ErrCodeConnection
		resp.Message = err.Error()
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
