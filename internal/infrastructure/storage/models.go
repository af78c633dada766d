package storage

import (
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// DefaultRunLimit is the number of runs ListSyncRuns returns for limit <= 0.
const DefaultRunLimit = 50

// SyncRun represents a sync run record
type SyncRun struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at,omitempty"`
	Status           string        `json:"status"`
	SyncType         string        `json:"sync_type"`
	ProductSelection string        `json:"product_selection"`
	Platforms        []platform.ID `json:"platforms"`
	ProductCount     int           `json:"product_count"`
	SuccessCount     int           `json:"success_count"`
	FailureCount     int           `json:"failure_count"`
}
