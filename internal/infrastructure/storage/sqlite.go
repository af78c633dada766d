package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// Storage provides SQLite database access for the product catalog and sync
// run history. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run all pending migrations
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const productColumns = `id, sku, name, category, inventory, price, sync_status, last_synced_at, platforms_json`

// ListProducts returns every product ordered by name
func (s *Storage) ListProducts() ([]catalog.Product, error) {
	rows, err := s.db.Query(`SELECT ` + productColumns + ` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct retrieves a product by ID
func (s *Storage) GetProduct(id string) (*catalog.Product, error) {
	row := s.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, err
}

// UpsertProducts inserts or replaces products in one transaction
func (s *Storage) UpsertProducts(products []catalog.Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO products (` + productColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
		platformsJSON, err := marshalPlatforms(p.Platforms)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			p.ID, p.SKU, p.Name, p.Category, p.Inventory, p.Price,
			string(p.SyncStatus), nullTime(p.LastSynced), platformsJSON,
		); err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateProductSync records the outcome of syncing a product
func (s *Storage) UpdateProductSync(id string, status catalog.SyncStatus, syncedAt *time.Time) error {
	result, err := s.db.Exec(`
	UPDATE products
	SET sync_status = ?, last_synced_at = COALESCE(?, last_synced_at)
	WHERE id = ?`, string(status), nullTime(syncedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(run *SyncRun) error {
	platformsJSON, err := marshalPlatforms(run.Platforms)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
	INSERT INTO sync_runs
	(id, started_at, status, sync_type, product_selection, platforms_json, product_count)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.Status, run.SyncType, run.ProductSelection,
		platformsJSON, run.ProductCount)
	if err != nil {
		return fmt.Errorf("failed to start sync run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteSyncRun records the end of a sync run
func (s *Storage) CompleteSyncRun(id string, status string, finishedAt time.Time, success, failure int) error {
	result, err := s.db.Exec(`
	UPDATE sync_runs
	SET finished_at = ?, status = ?, success_count = ?, failure_count = ?
	WHERE id = ?`, finishedAt.UTC(), status, success, failure, id)
	if err != nil {
		return fmt.Errorf("failed to complete sync run %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("sync run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, status, sync_type, product_selection, platforms_json, product_count, success_count, failure_count`

// ListSyncRuns returns recent sync runs, newest first
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	runs := []SyncRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetSyncRun retrieves a sync run by ID
func (s *Storage) GetSyncRun(id string) (*SyncRun, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync run %s: %w", id, ErrNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*catalog.Product, error) {
	var (
		p             catalog.Product
		status        string
		lastSynced    sql.NullTime
		platformsJSON string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Inventory, &p.Price,
		&status, &lastSynced, &platformsJSON); err != nil {
		return nil, err
	}
	p.SyncStatus = catalog.SyncStatus(status)
	if lastSynced.Valid {
		t := lastSynced.Time
		p.LastSynced = &t
	}
	platforms, err := unmarshalPlatforms(platformsJSON)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.Platforms = platforms
	return &p, nil
}

func scanRun(row scanner) (*SyncRun, error) {
	var (
		run           SyncRun
		finishedAt    sql.NullTime
		platformsJSON string
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.SyncType,
		&run.ProductSelection, &platformsJSON, &run.ProductCount, &run.SuccessCount,
		&run.FailureCount); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	platforms, err := unmarshalPlatforms(platformsJSON)
	if err != nil {
		return nil, fmt.Errorf("sync run %s: %w", run.ID, err)
	}
	run.Platforms = platforms
	return &run, nil
}

func marshalPlatforms(ids []platform.ID) (string, error) {
	if ids == nil {
		ids = []platform.ID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode platforms: %w", err)
	}
	return string(data), nil
}

func unmarshalPlatforms(data string) ([]platform.ID, error) {
	ids := []platform.ID{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	return ids, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
