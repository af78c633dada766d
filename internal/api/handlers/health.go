package handlers

import (
	"net/http"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
)

// HealthHandler answers liveness checks. When a dashboard is wired the
// response also carries the current sync status.
type HealthHandler struct {
	*Base
	dash  Dashboard
	clock clock.Clock
}

// NewHealthHandler creates a health handler. dash may be nil.
func NewHealthHandler(dash Dashboard, clk clock.Clock) *HealthHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &HealthHandler{Base: NewBase(nil), dash: dash, clock: clk}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse(h.clock.Now())
	if h.dash != nil {
		response.SyncStatus = string(h.dash.Snapshot().Status)
	}
	h.WriteJSON(w, http.StatusOK, response)
}
