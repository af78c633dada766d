package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/api/handlers"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	t.Run("returns 200 OK with health status", func(t *testing.T) {
		handler := handlers.NewHealthHandler(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		response := decode[dto.HealthResponse](t, rec)
		assert.Equal(t, "ok", response.Status)
		assert.NotEmpty(t, response.Timestamp)
		assert.Empty(t, response.SyncStatus)
	})

	t.Run("reports the sync status", func(t *testing.T) {
		e := newEnv(t, true)
		handler := handlers.NewHealthHandler(e.ctrl, e.clock)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		response := decode[dto.HealthResponse](t, rec)
		assert.Equal(t, "2024-03-10T09:00:00Z", response.Timestamp)
		assert.Equal(t, "idle", response.SyncStatus)

		e.start(t)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "syncing", decode[dto.HealthResponse](t, rec).SyncStatus)
	})
}
