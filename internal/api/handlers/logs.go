package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
)

const dateLayout = "2006-01-02"

// defaultLogSort shows the newest entries first.
var defaultLogSort = explorer.SortSpec{Field: synclog.SortTimestamp, Direction: explorer.Descending}

// LogsHandler serves the sync log view. The view is stateless: every request
// carries its own filter and sort in the query string.
type LogsHandler struct {
	*Base
	dash  Dashboard
	clock clock.Clock
}

// NewLogsHandler creates a new logs handler. A nil clock uses the wall clock.
func NewLogsHandler(dash Dashboard, clk clock.Clock, logger *slog.Logger) *LogsHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &LogsHandler{
		Base:  NewBase(logger),
		dash:  dash,
		clock: clk,
	}
}

// List handles GET /api/logs.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.query(w, r)
	if !ok {
		return
	}

	all, err := h.dash.Logs(nil, explorer.SortSpec{})
	if err != nil {
		h.WriteDomainError(w, err, "logs")
		return
	}

	response := dto.LogListResponse{
		Logs:  make([]dto.LogEntryResponse, 0, len(entries)),
		Count: len(entries),
		Total: len(all),
	}
	for _, e := range entries {
		response.Logs = append(response.Logs, toLogEntryResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Export handles GET /api/logs/export - downloads the filtered view as CSV.
func (h *LogsHandler) Export(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.query(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := synclog.WriteCSV(&buf, entries); err != nil {
		h.WriteDomainError(w, err, "logs")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", synclog.ExportFileName(h.clock.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *LogsHandler) query(w http.ResponseWriter, r *http.Request) ([]synclog.Entry, bool) {
	filter, sort, err := ParseLogQuery(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return nil, false
	}

	entries, err := h.dash.Logs(filter, sort)
	if err != nil {
		h.WriteDomainError(w, err, "logs")
		return nil, false
	}
	return entries, true
}

// ParseLogQuery reads the log filter and sort from query parameters:
// search, platform, status, operation, from, to, sort and direction.
// Dates are RFC 3339 or YYYY-MM-DD. A bare "to" date includes the whole day.
func ParseLogQuery(r *http.Request) (explorer.FilterSpec, explorer.SortSpec, error) {
	q := r.URL.Query()

	filter := explorer.FilterSpec{
		synclog.FieldSearch:    explorer.Contains(q.Get("search")),
		synclog.FieldStatus:    explorer.Equals(q.Get("status")),
		synclog.FieldOperation: explorer.Equals(q.Get("operation")),
	}

	if p := strings.TrimSpace(q.Get("platform")); p != "" && !strings.EqualFold(p, explorer.AllValue) {
		id, err := platform.Parse(p)
		if err != nil {
			return nil, explorer.SortSpec{}, err
		}
		// all-platforms is the dashboard's "any platform" choice, not a
		// filter for the synthetic stop entries
		if id != platform.All {
			filter[synclog.FieldPlatform] = explorer.Equals(id)
		}
	}

	var rng explorer.TimeRange
	if v := q.Get("from"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return nil, explorer.SortSpec{}, fmt.Errorf("invalid from: %w", err)
		}
		rng.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, dateOnly, err := parseDate(v)
		if err != nil {
			return nil, explorer.SortSpec{}, fmt.Errorf("invalid to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		rng.To = &t
	}
	filter[synclog.FieldTimestamp] = rng

	sort := defaultLogSort
	if field := q.Get("sort"); field != "" {
		dir, err := explorer.ParseDirection(q.Get("direction"))
		if err != nil {
			return nil, explorer.SortSpec{}, err
		}
		sort = explorer.SortSpec{Field: field, Direction: dir}
	}

	return filter, sort, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%q is not a date", s)
	}
	return t, true, nil
}
