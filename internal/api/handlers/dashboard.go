package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/dashboard"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

// Dashboard is the application surface the handlers drive.
// *dashboard.Controller implements it.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	CurrentJob() (syncjob.Job, bool)
	StartSync(req dashboard.StartRequest) (syncjob.Job, error)
	CancelSync() bool

	Logs(filter explorer.FilterSpec, sort explorer.SortSpec) ([]synclog.Entry, error)
	Runs(limit int) ([]storage.SyncRun, error)
	Run(id string) (*storage.SyncRun, error)

	Products() dashboard.ProductView
	SetProductFilter(filter explorer.FilterSpec) (dashboard.ProductView, error)
	SortProducts(field string) (dashboard.ProductView, error)
	ToggleProduct(id string) dashboard.ProductView
	ToggleAllProducts() dashboard.ProductView
	RefreshProducts() error

	TestConnection(ctx context.Context, id platform.ID) error
}

var _ Dashboard = (*dashboard.Controller)(nil)

// DashboardHandler serves the dashboard summary.
type DashboardHandler struct {
	*Base
	dash Dashboard
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dash Dashboard, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		Base: NewBase(logger),
		dash: dash,
	}
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.dash.Snapshot()

	resp := dto.DashboardResponse{
		Status:         string(snap.Status),
		SuccessCount:   snap.Metrics.SuccessCount,
		FailureCount:   snap.Metrics.FailureCount,
		SuccessRate:    snap.SuccessRate,
		PlatformCounts: make(map[string]int, len(snap.Metrics.PerPlatformCounts)),
		LastSyncAt:     formatTimePtr(snap.Metrics.LastSyncAt),
		Platforms:      make([]dto.PlatformResponse, 0, len(snap.Platforms)),
	}
	for id, n := range snap.Metrics.PerPlatformCounts {
		resp.PlatformCounts[string(id)] = n
	}
	for _, id := range snap.Platforms {
		resp.Platforms = append(resp.Platforms, dto.PlatformResponse{ID: string(id), Name: id.DisplayName()})
	}
	if snap.Job != nil {
		job := toJobResponse(*snap.Job)
		resp.Job = &job
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func platformStrings(ids []platform.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toJobResponse(job syncjob.Job) dto.SyncJobResponse {
	resp := dto.SyncJobResponse{
		JobID:            job.ID,
		Status:           string(job.Status),
		ProgressPercent:  job.ProgressPercent,
		SecondsRemaining: job.SecondsRemaining,
		Platforms:        platformStrings(job.Options.Platforms),
		SyncType:         string(job.Options.SyncType),
		ProductSelection: string(job.Options.ProductSelection),
		ProductIDs:       job.Options.ProductIDs,
		StartedAt:        formatTime(job.StartedAt),
		FinishedAt:       formatTimePtr(job.FinishedAt),
	}
	if o := job.Outcome; o != nil {
		counts := make(map[string]int, len(o.PerPlatformSuccessCounts))
		for id, n := range o.PerPlatformSuccessCounts {
			counts[string(id)] = n
		}
		resp.Outcome = &dto.SyncOutcomeResponse{
			SuccessCount:             o.SuccessCount,
			FailureCount:             o.FailureCount,
			PerPlatformSuccessCounts: counts,
			Cancelled:                o.Cancelled,
		}
	}
	return resp
}

func toRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	resp := dto.SyncRunResponse{
		ID:               run.ID,
		StartedAt:        formatTime(run.StartedAt),
		Status:           run.Status,
		SyncType:         run.SyncType,
		ProductSelection: run.ProductSelection,
		Platforms:        platformStrings(run.Platforms),
		ProductCount:     run.ProductCount,
		SuccessCount:     run.SuccessCount,
		FailureCount:     run.FailureCount,
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = formatTime(*run.FinishedAt)
	}
	return resp
}

func toProductResponse(p catalog.Product, selected bool) dto.ProductResponse {
	return dto.ProductResponse{
		ID:         p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Category:   p.Category,
		Inventory:  p.Inventory,
		Price:      p.Price,
		SyncStatus: string(p.SyncStatus),
		LastSynced: formatTimePtr(p.LastSynced),
		Platforms:  platformStrings(p.Platforms),
		Selected:   selected,
	}
}

func toProductViewResponse(view dashboard.ProductView) dto.ProductViewResponse {
	selected := make(map[string]bool, len(view.Selected))
	for _, id := range view.Selected {
		selected[id] = true
	}

	resp := dto.ProductViewResponse{
		Products:      make([]dto.ProductResponse, 0, len(view.Products)),
		Count:         len(view.Products),
		Total:         view.Total,
		Categories:    view.Categories,
		Filter:        filterToRequest(view.Filter),
		Sort:          dto.SortResponse{Field: view.Sort.Field, Direction: string(view.Sort.Direction)},
		Selected:      view.Selected,
		SelectedCount: len(view.Selected),
		AllSelected:   view.AllSelected,
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if resp.Selected == nil {
		resp.Selected = []string{}
	}
	for _, p := range view.Products {
		resp.Products = append(resp.Products, toProductResponse(p, selected[p.ID]))
	}
	return resp
}

func toLogEntryResponse(e synclog.Entry) dto.LogEntryResponse {
	return dto.LogEntryResponse{
		ID:           e.ID,
		Timestamp:    formatTime(e.Timestamp),
		Operation:    string(e.Operation),
		ProductSKU:   e.ProductSKU,
		ProductName:  e.ProductName,
		Platform:     string(e.Platform),
		PlatformName: e.Platform.DisplayName(),
		Status:       string(e.Status),
		Details:      e.Details,
	}
}
