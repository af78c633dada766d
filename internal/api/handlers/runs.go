package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
)

// RunsHandler handles sync run-related HTTP requests.
type RunsHandler struct {
	*Base
	dash Dashboard
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(dash Dashboard, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(logger),
		dash: dash,
	}
}

// List handles GET /api/runs - returns list of sync runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.dash.Runs(limit)
	if err != nil {
		h.WriteDomainError(w, err, "sync runs")
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}

	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single sync run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.dash.Run(id)
	if err != nil {
		h.WriteDomainError(w, err, "sync run")
		return
	}

	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}
