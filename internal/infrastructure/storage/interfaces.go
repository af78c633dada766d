package storage

import (
	"errors"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
)

// ErrNotFound is returned when a product or sync run does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	ProductRepository
	SyncRunRepository
	Close() error
}

// ProductRepository handles the product catalog
type ProductRepository interface {
	// ListProducts returns every product ordered by name
	ListProducts() ([]catalog.Product, error)

	// GetProduct retrieves a product by ID
	GetProduct(id string) (*catalog.Product, error)

	// UpsertProducts inserts or replaces products in one transaction
	UpsertProducts(products []catalog.Product) error

	// UpdateProductSync records the outcome of syncing a product. A nil
	// syncedAt keeps the previous last-synced time.
	UpdateProductSync(id string, status catalog.SyncStatus, syncedAt *time.Time) error
}

// SyncRunRepository handles sync run history
type SyncRunRepository interface {
	// StartSyncRun records the start of a sync run
	StartSyncRun(run *SyncRun) error

	// CompleteSyncRun records the end of a sync run
	CompleteSyncRun(id string, status string, finishedAt time.Time, success, failure int) error

	// ListSyncRuns returns recent sync runs, newest first
	ListSyncRuns(limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a sync run by ID
	GetSyncRun(id string) (*SyncRun, error)
}
