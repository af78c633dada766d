package dto

// StartSyncRequest is the request body for starting a sync.
type StartSyncRequest struct {
	Platforms        []string `json:"platforms" validate:"required,min=1,dive,required"` // ids or display names
	SyncType         string   `json:"sync_type" validate:"required,oneof=inventory pricing all"`
	ProductSelection string   `json:"product_selection" validate:"required,oneof=all filtered selected"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID            string               `json:"job_id"`
	Status           string               `json:"status"`
	ProgressPercent  int                  `json:"progress_percent"`
	SecondsRemaining int                  `json:"seconds_remaining"`
	Platforms        []string             `json:"platforms"`
	SyncType         string               `json:"sync_type"`
	ProductSelection string               `json:"product_selection"`
	ProductIDs       []string             `json:"product_ids,omitempty"`
	StartedAt        string               `json:"started_at"`
	FinishedAt       *string              `json:"finished_at,omitempty"`
	Outcome          *SyncOutcomeResponse `json:"outcome,omitempty"`
}

// SyncOutcomeResponse represents the result of a finished job.
type SyncOutcomeResponse struct {
	SuccessCount             int            `json:"success_count"`
	FailureCount             int            `json:"failure_count"`
	PerPlatformSuccessCounts map[string]int `json:"per_platform_success_counts"`
	Cancelled                bool           `json:"cancelled"`
}

// ConnectionTestResponse is returned by the platform connection test.
type ConnectionTestResponse struct {
	Platform string `json:"platform"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	// Code is ErrCodeConnection when the test failed.
	Code string `json:"code,omitempty"`
}
