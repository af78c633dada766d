package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

// maxBodyBytes caps request bodies. Every request body of this API is small.
const maxBodyBytes = 1 << 20

// Base provides shared functionality for all handlers.
type Base struct {
	logger *slog.Logger
}

// NewBase creates a new base handler. A nil logger uses slog.Default.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteDomainError maps an application error to its HTTP status.
// resource names the thing that was looked up for not found errors.
func (b *Base) WriteDomainError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, syncjob.ErrJobAlreadyRunning):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	case errors.Is(err, syncjob.ErrInvalidOptions),
		errors.Is(err, explorer.ErrUnknownField),
		errors.Is(err, explorer.ErrCriterionMismatch):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, platforms.ErrUnknownPlatform):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError(resource))
	case errors.Is(err, syncjob.ErrEngineClosed):
		b.WriteError(w, http.StatusServiceUnavailable, dto.NewAPIError(dto.ErrCodeUnavailable, err.Error()))
	default:
		b.logger.Error("request failed", "resource", resource, "error", err)
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// ReadJSON decodes the request body into v and runs its validation tags.
// On failure it writes the error response and returns false.
func (b *Base) ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError(fmt.Sprintf("invalid request body: %v", err)))
		return false
	}
	if err := dto.Validate(v); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return false
	}
	return true
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
