package handlers

import (
	"log/slog"
	"net/http"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/dashboard"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	dash Dashboard
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(dash Dashboard, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		Base: NewBase(logger),
		dash: dash,
	}
}

// StartSync handles POST /api/sync - starts a new sync job.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if !h.ReadJSON(w, r, &req) {
		return
	}

	ids := make([]platform.ID, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		id, err := platform.Parse(name)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
			return
		}
		ids = append(ids, id)
	}

	job, err := h.dash.StartSync(dashboard.StartRequest{
		Platforms:        ids,
		SyncType:         syncjob.SyncType(req.SyncType),
		ProductSelection: syncjob.ProductSelection(req.ProductSelection),
	})
	if err != nil {
		h.WriteDomainError(w, err, "sync job")
		return
	}

	h.WriteJSON(w, http.StatusAccepted, toJobResponse(job))
}

// GetSync handles GET /api/sync - returns the active or most recent job.
func (h *SyncHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	job, ok := h.dash.CurrentJob()
	if !ok {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}
	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// CancelSync handles DELETE /api/sync - stops the running job. Stopping
// when nothing runs is not an error.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	if !h.dash.CancelSync() {
		h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "no sync running"})
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "sync cancelled"})
}
