package storage

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	syncRuns map[string]SyncRun

	// Hooks for test assertions
	UpsertProductsCalled    bool
	UpdateProductSyncCalled int
	StartSyncRunCalled      bool
	CompleteSyncRunCalled   bool
	LastStartedRun          *SyncRun

	// Error injection for testing error paths
	ListProductsErr      error
	UpsertProductsErr    error
	UpdateProductSyncErr error
	StartSyncRunErr      error
	CompleteSyncRunErr   error
	ListSyncRunsErr      error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		products: make(map[string]catalog.Product),
		syncRuns: make(map[string]SyncRun),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// ListProducts returns stored products ordered by name
func (m *MockRepository) ListProducts() ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListProductsErr != nil {
		return nil, m.ListProductsErr
	}

	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetProduct retrieves a product by ID
func (m *MockRepository) GetProduct(id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	copied := copyProduct(p)
	return &copied, nil
}

// UpsertProducts stores copies of the products
func (m *MockRepository) UpsertProducts(products []catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertProductsCalled = true
	if m.UpsertProductsErr != nil {
		return m.UpsertProductsErr
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, p := range products {
		m.products[p.ID] = copyProduct(p)
	}
	return nil
}

// UpdateProductSync updates the sync state of a stored product
func (m *MockRepository) UpdateProductSync(id string, status catalog.SyncStatus, syncedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateProductSyncCalled++
	if m.UpdateProductSyncErr != nil {
		return m.UpdateProductSyncErr
	}
	p, ok := m.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p.SyncStatus = status
	if syncedAt != nil {
		t := *syncedAt
		p.LastSynced = &t
	}
	m.products[id] = p
	return nil
}

// StartSyncRun stores a new sync run
func (m *MockRepository) StartSyncRun(run *SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartSyncRunCalled = true
	m.LastStartedRun = run
	if m.StartSyncRunErr != nil {
		return m.StartSyncRunErr
	}
	if _, exists := m.syncRuns[run.ID]; exists {
		return fmt.Errorf("sync run %s already exists", run.ID)
	}
	m.syncRuns[run.ID] = copyRun(*run)
	return nil
}

// CompleteSyncRun marks a stored sync run as finished
func (m *MockRepository) CompleteSyncRun(id string, status string, finishedAt time.Time, success, failure int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteSyncRunCalled = true
	if m.CompleteSyncRunErr != nil {
		return m.CompleteSyncRunErr
	}
	run, ok := m.syncRuns[id]
	if !ok {
		return fmt.Errorf("sync run %s: %w", id, ErrNotFound)
	}
	run.Status = status
	run.FinishedAt = &finishedAt
	run.SuccessCount = success
	run.FailureCount = failure
	m.syncRuns[id] = run
	return nil
}

// ListSyncRuns returns stored runs, newest first
func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListSyncRunsErr != nil {
		return nil, m.ListSyncRunsErr
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	out := make([]SyncRun, 0, len(m.syncRuns))
	for _, run := range m.syncRuns {
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetSyncRun retrieves a sync run by ID
func (m *MockRepository) GetSyncRun(id string) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.syncRuns[id]
	if !ok {
		return nil, fmt.Errorf("sync run %s: %w", id, ErrNotFound)
	}
	copied := copyRun(run)
	return &copied, nil
}

// Deep copies to avoid test mutations

func copyProduct(p catalog.Product) catalog.Product {
	p.Platforms = slices.Clone(p.Platforms)
	if p.LastSynced != nil {
		t := *p.LastSynced
		p.LastSynced = &t
	}
	return p
}

func copyRun(run SyncRun) SyncRun {
	run.Platforms = slices.Clone(run.Platforms)
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		run.FinishedAt = &t
	}
	return run
}
