// Package dashboard wires operator actions to the sync engine and feeds job
// results into the log aggregator, the run history and the product view.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/logagg"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/metrics"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

// Status is the sync state shown on the dashboard.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Config holds the dashboard settings.
type Config struct {
	// Platforms are the enabled platforms, in display order.
	Platforms []platform.ID
	// ErrorThreshold raises an alert when one job fails this many times.
	// Zero disables the alert.
	ErrorThreshold int
}

// Deps are the collaborators of a Controller. Metrics, Clock and Logger are
// optional.
type Deps struct {
	Engine     *syncjob.Engine
	Aggregator *logagg.Aggregator
	Repository storage.Repository
	Clients    platforms.Registry
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	Logger     *slog.Logger
}

// StartRequest is an operator's request to start a sync.
type StartRequest struct {
	Platforms        []platform.ID
	SyncType         syncjob.SyncType
	ProductSelection syncjob.ProductSelection
}

// Snapshot is the dashboard state at one point in time.
type Snapshot struct {
	Status      Status
	Metrics     logagg.Metrics
	SuccessRate int
	Job         *syncjob.Job
	Platforms   []platform.ID
}

// ProductView is the state of the product table.
type ProductView struct {
	Products    []catalog.Product
	Total       int
	Categories  []string
	Filter      explorer.FilterSpec
	Sort        explorer.SortSpec
	Selected    []string
	AllSelected bool
}

// Controller owns the dashboard state.
type Controller struct {
	cfg        Config
	engine     *syncjob.Engine
	aggregator *logagg.Aggregator
	repo       storage.Repository
	clients    platforms.Registry
	metrics    *metrics.Metrics
	clock      clock.Clock
	logger     *slog.Logger

	// ops serializes StartSync and CancelSync. The engine subscriber never
	// takes it.
	ops sync.Mutex

	// mu guards the fields below. It is never held while calling the engine.
	mu       sync.Mutex
	status   Status
	products *explorer.Explorer[catalog.Product]

	unsubscribe func()

	scheduleStop chan struct{}
	scheduleDone chan struct{}
}

// New creates a controller and subscribes it to the engine.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Engine == nil || deps.Aggregator == nil || deps.Repository == nil {
		return nil, errors.New("dashboard: engine, aggregator and repository are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	c := &Controller{
		cfg:        cfg,
		engine:     deps.Engine,
		aggregator: deps.Aggregator,
		repo:       deps.Repository,
		clients:    deps.Clients,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger,
		status:     StatusIdle,
		products:   catalog.NewExplorer(),
	}

	c.products.Subscribe(func(change explorer.SelectionChange) {
		c.logger.Debug("product selection changed",
			"selected", len(change.Selected),
			"all_selected", change.AllSelected)
	})

	if err := c.RefreshProducts(); err != nil {
		return nil, err
	}

	c.unsubscribe = c.engine.Subscribe(c.handleEvent)
	return c, nil
}

// Close stops the scheduler and detaches from the engine.
func (c *Controller) Close() {
	c.StopScheduler()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Snapshot returns the current dashboard state.
func (c *Controller) Snapshot() Snapshot {
	m := c.aggregator.Metrics()
	snap := Snapshot{
		Metrics:     m,
		SuccessRate: m.SuccessRate(),
		Platforms:   slices.Clone(c.cfg.Platforms),
	}
	if job, ok := c.engine.Current(); ok {
		snap.Job = &job
	}

	c.mu.Lock()
	snap.Status = c.status
	c.mu.Unlock()
	if snap.Job != nil && snap.Job.Status == syncjob.StatusRunning {
		snap.Status = StatusSyncing
	}
	return snap
}

// CurrentJob returns the active or most recent job.
func (c *Controller) CurrentJob() (syncjob.Job, bool) {
	return c.engine.Current()
}

// StartSync starts a job. Filtered and selected runs are pinned to the
// products in the current view or selection.
func (c *Controller) StartSync(req StartRequest) (syncjob.Job, error) {
	c.ops.Lock()
	defer c.ops.Unlock()

	for _, id := range req.Platforms {
		if !slices.Contains(c.cfg.Platforms, id) {
			return syncjob.Job{}, fmt.Errorf("%w: platform %s is not enabled", syncjob.ErrInvalidOptions, id)
		}
	}

	opts := syncjob.Options{
		Platforms:        req.Platforms,
		SyncType:         req.SyncType,
		ProductSelection: req.ProductSelection,
	}

	c.mu.Lock()
	switch req.ProductSelection {
	case syncjob.SelectFiltered:
		opts.ProductIDs = catalog.Schema.IDs(c.products.View())
	case syncjob.SelectSelected:
		opts.ProductIDs = c.products.Selected()
	}
	productCount := len(opts.ProductIDs)
	if req.ProductSelection == syncjob.SelectAll {
		productCount = len(c.products.Records())
	}
	c.mu.Unlock()

	job, err := c.engine.StartWith(opts, func(job syncjob.Job) {
		run := &storage.SyncRun{
			ID:               job.ID,
			StartedAt:        job.StartedAt,
			Status:           string(job.Status),
			SyncType:         string(job.Options.SyncType),
			ProductSelection: string(job.Options.ProductSelection),
			Platforms:        job.Options.Platforms,
			ProductCount:     productCount,
		}
		if err := c.repo.StartSyncRun(run); err != nil {
			c.logger.Warn("failed to record sync run", "job_id", job.ID, "error", err)
		}
	})
	if err != nil {
		return syncjob.Job{}, err
	}

	c.metrics.RecordJobStarted()
	c.logger.Info("sync started",
		"job_id", job.ID,
		"platforms", len(job.Options.Platforms),
		"sync_type", job.Options.SyncType,
		"product_selection", job.Options.ProductSelection,
		"products", productCount)
	return job, nil
}

// CancelSync stops the running job. It reports false when nothing was running.
func (c *Controller) CancelSync() bool {
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.engine.Cancel()
}

// Logs returns the log history filtered and sorted.
func (c *Controller) Logs(filter explorer.FilterSpec, sort explorer.SortSpec) ([]synclog.Entry, error) {
	return synclog.Schema.ComputeView(c.aggregator.Logs(), filter, sort)
}

// Runs returns recent sync runs, newest first.
func (c *Controller) Runs(limit int) ([]storage.SyncRun, error) {
	return c.repo.ListSyncRuns(limit)
}

// Run returns one sync run.
func (c *Controller) Run(id string) (*storage.SyncRun, error) {
	return c.repo.GetSyncRun(id)
}

// Products returns the product table state.
func (c *Controller) Products() ProductView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.productViewLocked()
}

// SetProductFilter replaces the product filter.
func (c *Controller) SetProductFilter(filter explorer.FilterSpec) (ProductView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.products.SetFilter(filter); err != nil {
		return ProductView{}, err
	}
	return c.productViewLocked(), nil
}

// SortProducts applies a header click on field.
func (c *Controller) SortProducts(field string) (ProductView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.products.SortBy(field); err != nil {
		return ProductView{}, err
	}
	return c.productViewLocked(), nil
}

// ToggleProduct flips the selection of one product.
func (c *Controller) ToggleProduct(id string) ProductView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products.Toggle(id)
	return c.productViewLocked()
}

// ToggleAllProducts applies select-all to the visible products.
func (c *Controller) ToggleAllProducts() ProductView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products.ToggleAll()
	return c.productViewLocked()
}

// RefreshProducts reloads the catalog from storage. Selected products that
// no longer exist are deselected.
func (c *Controller) RefreshProducts() error {
	products, err := c.repo.ListProducts()
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	running := c.engine.Running()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products.SetRecords(products)
	if !running {
		c.status = StatusIdle
	}
	return nil
}

// TestConnection verifies the credentials of one platform.
func (c *Controller) TestConnection(ctx context.Context, id platform.ID) error {
	client, err := c.clients.Get(id)
	if err != nil {
		return err
	}
	return client.Ping(ctx)
}

func (c *Controller) productViewLocked() ProductView {
	records := c.products.Records()
	return ProductView{
		Products:    c.products.View(),
		Total:       len(records),
		Categories:  catalog.Categories(records),
		Filter:      c.products.Filter(),
		Sort:        c.products.Sort(),
		Selected:    c.products.Selected(),
		AllSelected: c.products.AllSelected(),
	}
}

// handleEvent runs on the engine's job goroutine, or on the goroutine that
// called CancelSync.
func (c *Controller) handleEvent(event syncjob.Event) {
	switch e := event.(type) {
	case syncjob.ProgressEvent:
		c.metrics.RecordProgress(e.ProgressPercent)
	case syncjob.TerminalEvent:
		c.handleTerminal(e)
	}
}

func (c *Controller) handleTerminal(e syncjob.TerminalEvent) {
	outcome := e.Outcome
	totals := c.aggregator.Record(outcome)

	finishedAt := outcome.FinishedAt
	if e.Job.FinishedAt != nil {
		finishedAt = *e.Job.FinishedAt
	}
	if err := c.repo.CompleteSyncRun(e.Job.ID, string(e.Job.Status), finishedAt,
		outcome.SuccessCount, outcome.FailureCount); err != nil {
		c.logger.Warn("failed to complete sync run", "job_id", e.Job.ID, "error", err)
	}

	c.metrics.RecordJobFinished(string(e.Job.Status), finishedAt.Sub(e.Job.StartedAt))
	for _, entry := range outcome.Entries {
		c.metrics.RecordLogEntry(string(entry.Platform), string(entry.Status))
	}

	if c.cfg.ErrorThreshold > 0 && outcome.FailureCount >= c.cfg.ErrorThreshold {
		c.metrics.ErrorThresholdHits.Inc()
		c.logger.Warn("sync error threshold reached",
			"job_id", e.Job.ID,
			"failures", outcome.FailureCount,
			"threshold", c.cfg.ErrorThreshold)
	}

	if !outcome.Cancelled {
		c.storeProductResults(outcome.Products)
	}

	products, err := c.repo.ListProducts()
	if err != nil {
		c.logger.Warn("failed to reload products", "error", err)
	}

	c.mu.Lock()
	c.status = terminalStatus(outcome)
	if err == nil {
		c.products.SetRecords(products)
	}
	c.mu.Unlock()

	c.logger.Info("sync finished",
		"job_id", e.Job.ID,
		"status", e.Job.Status,
		"success", outcome.SuccessCount,
		"failed", outcome.FailureCount,
		"success_rate", totals.SuccessRate())
}

// storeProductResults records the sync state of each product of a completed
// job. A failed product keeps its previous last-synced time.
func (c *Controller) storeProductResults(results []syncjob.ProductResult) {
	for _, r := range results {
		var err error
		if r.Failed {
			err = c.repo.UpdateProductSync(r.ProductID, catalog.StatusError, nil)
		} else {
			syncedAt := r.SyncedAt
			err = c.repo.UpdateProductSync(r.ProductID, catalog.StatusSynced, &syncedAt)
		}
		if err != nil {
			c.logger.Warn("failed to update product sync status", "product_id", r.ProductID, "error", err)
		}
	}
}

// terminalStatus is idle after a cancellation, error when nothing succeeded
// and something failed, and success otherwise.
func terminalStatus(o syncjob.Outcome) Status {
	switch {
	case o.Cancelled:
		return StatusIdle
	case o.SuccessCount == 0 && o.FailureCount > 0:
		return StatusError
	}
	return StatusSuccess
}

// StartScheduler starts a full sync of every enabled platform each interval.
// A tick that finds a job running is skipped. Call StopScheduler to stop it.
func (c *Controller) StartScheduler(interval time.Duration) {
	if interval <= 0 || c.scheduleStop != nil {
		return
	}
	c.scheduleStop = make(chan struct{})
	c.scheduleDone = make(chan struct{})
	ticker := c.clock.NewTicker(interval)

	go func() {
		defer close(c.scheduleDone)
		defer ticker.Stop()

		c.logger.Info("scheduled sync started", "interval", interval)

		for {
			select {
			case <-c.scheduleStop:
				c.logger.Info("scheduled sync stopped")
				return
			case <-ticker.C():
				c.runScheduled()
			}
		}
	}()
}

// StopScheduler stops the scheduler goroutine and waits for it to exit.
func (c *Controller) StopScheduler() {
	if c.scheduleStop == nil {
		return
	}
	close(c.scheduleStop)
	<-c.scheduleDone
	c.scheduleStop = nil
}

func (c *Controller) runScheduled() {
	_, err := c.StartSync(StartRequest{
		Platforms:        slices.Clone(c.cfg.Platforms),
		SyncType:         syncjob.SyncAll,
		ProductSelection: syncjob.SelectAll,
	})
	switch {
	case errors.Is(err, syncjob.ErrJobAlreadyRunning):
		c.metrics.ScheduledSkips.Inc()
		c.logger.Info("scheduled sync skipped, a job is already running")
	case err != nil:
		c.logger.Error("scheduled sync failed to start", "error", err)
	}
}
