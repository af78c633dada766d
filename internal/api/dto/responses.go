package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	SyncStatus string `json:"sync_status,omitempty"`
}

// NewHealthResponse creates a healthy response stamped with now.
func NewHealthResponse(now time.Time) HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// PlatformResponse identifies a platform.
type PlatformResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DashboardResponse is returned by GET /api/dashboard.
type DashboardResponse struct {
	Status         string             `json:"status"`
	SuccessCount   int                `json:"success_count"`
	FailureCount   int                `json:"failure_count"`
	SuccessRate    int                `json:"success_rate"`
	PlatformCounts map[string]int     `json:"platform_counts"`
	LastSyncAt     *string            `json:"last_sync_at,omitempty"`
	Job            *SyncJobResponse   `json:"job,omitempty"`
	Platforms      []PlatformResponse `json:"platforms"`
}

// SyncRunResponse represents a sync run in API responses.
type SyncRunResponse struct {
	ID               string   `json:"id"`
	StartedAt        string   `json:"started_at"`
	FinishedAt       string   `json:"finished_at,omitempty"`
	Status           string   `json:"status"`
	SyncType         string   `json:"sync_type"`
	ProductSelection string   `json:"product_selection"`
	Platforms        []string `json:"platforms"`
	ProductCount     int      `json:"product_count"`
	SuccessCount     int      `json:"success_count"`
	FailureCount     int      `json:"failure_count"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// LogEntryResponse represents one sync log entry.
type LogEntryResponse struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	Operation    string `json:"operation"`
	ProductSKU   string `json:"product_sku"`
	ProductName  string `json:"product_name"`
	Platform     string `json:"platform"`
	PlatformName string `json:"platform_name"`
	Status       string `json:"status"`
	Details      string `json:"details,omitempty"`
}

// LogListResponse is returned by GET /api/logs.
type LogListResponse struct {
	Logs  []LogEntryResponse `json:"logs"`
	Count int                `json:"count"`
	Total int                `json:"total"`
}
