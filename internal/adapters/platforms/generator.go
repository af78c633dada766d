package platforms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/synclog"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

// Recorder receives the result of every platform call.
type Recorder interface {
	RecordPlatformRequest(platform, operation string, err error)
}

// CatalogGenerator synchronizes the catalog products a job selected to the
// job's platforms and reports one log entry per product and platform.
type CatalogGenerator struct {
	products storage.ProductRepository
	clients  Registry
	clock    clock.Clock
	recorder Recorder
	logger   *slog.Logger
}

// Compile-time check that CatalogGenerator implements OutcomeGenerator
var _ syncjob.OutcomeGenerator = (*CatalogGenerator)(nil)

// NewCatalogGenerator creates a generator. recorder may be nil.
func NewCatalogGenerator(products storage.ProductRepository, clients Registry, clk clock.Clock, recorder Recorder, logger *slog.Logger) *CatalogGenerator {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogGenerator{
		products: products,
		clients:  clients,
		clock:    clk,
		recorder: recorder,
		logger:   logger,
	}
}

// OperationFor maps a sync type to the operation written to the log.
func OperationFor(t syncjob.SyncType) synclog.Operation {
	switch t {
	case syncjob.SyncInventory:
		return synclog.OperationInventory
	case syncjob.SyncPricing:
		return synclog.OperationPrice
	}
	return synclog.OperationAll
}

// Generate pushes the job's products and returns the resulting outcome. It
// stops with ctx.Err() when the job is cancelled. Product sync state is
// reported in the outcome and left to the caller to store.
func (g *CatalogGenerator) Generate(ctx context.Context, job syncjob.Job) (syncjob.Outcome, error) {
	products, err := g.resolve(job.Options)
	if err != nil {
		return syncjob.Outcome{}, err
	}

	op := OperationFor(job.Options.SyncType)
	outcome := syncjob.Outcome{
		PerPlatformSuccessCounts: make(map[platform.ID]int),
		Entries:                  []synclog.Entry{},
	}

	g.logger.Info("pushing products",
		"job_id", job.ID,
		"products", len(products),
		"platforms", len(job.Options.Platforms),
		"operation", op)

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return syncjob.Outcome{}, err
		}

		failed := false
		for _, id := range job.Options.Platforms {
			pushErr := g.push(ctx, id, p, op)
			if pushErr != nil && ctx.Err() != nil {
				return syncjob.Outcome{}, ctx.Err()
			}

			entry := synclog.Entry{
				ID:          synclog.NewID(),
				Timestamp:   g.clock.Now(),
				Operation:   op,
				ProductSKU:  p.SKU,
				ProductName: p.Name,
				Platform:    id,
			}
			if pushErr != nil {
				failed = true
				entry.Status = synclog.StatusError
				entry.Details = pushErr.Error()
				outcome.FailureCount++
			} else {
				entry.Status = synclog.StatusSuccess
				entry.Details = successDetails(op, p)
				outcome.SuccessCount++
				outcome.PerPlatformSuccessCounts[id]++
			}
			outcome.Entries = append(outcome.Entries, entry)
		}

		outcome.Products = append(outcome.Products, syncjob.ProductResult{
			ProductID: p.ID,
			Failed:    failed,
			SyncedAt:  g.clock.Now(),
		})
	}

	return outcome, nil
}

// resolve returns the products a job covers. Pinned IDs that no longer exist
// are skipped.
func (g *CatalogGenerator) resolve(opts syncjob.Options) ([]catalog.Product, error) {
	if opts.ProductSelection == syncjob.SelectAll {
		products, err := g.products.ListProducts()
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		return products, nil
	}

	products := make([]catalog.Product, 0, len(opts.ProductIDs))
	for _, id := range opts.ProductIDs {
		p, err := g.products.GetProduct(id)
		if err != nil {
			g.logger.Warn("skipping product", "product_id", id, "error", err)
			continue
		}
		products = append(products, *p)
	}
	return products, nil
}

func (g *CatalogGenerator) push(ctx context.Context, id platform.ID, p catalog.Product, op synclog.Operation) error {
	client, err := g.clients.Get(id)
	if err == nil {
		err = client.Push(ctx, Update{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Operation: op,
			Inventory: p.Inventory,
			Price:     p.Price,
		})
	}
	if g.recorder != nil {
		g.recorder.RecordPlatformRequest(string(id), string(op), err)
	}
	return err
}

func successDetails(op synclog.Operation, p catalog.Product) string {
	switch op {
	case synclog.OperationInventory:
		return fmt.Sprintf("Inventory updated to %d units", p.Inventory)
	case synclog.OperationPrice:
		return fmt.Sprintf("Price updated to %.2f", p.Price)
	}
	return fmt.Sprintf("Inventory (%d units) and price (%.2f) updated", p.Inventory, p.Price)
}
