package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/dashboard"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/logagg"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/config"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/metrics"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

const waitTimeout = 2 * time.Second

var epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	ctrl  *dashboard.Controller
	clock *clock.Manual
	repo  *storage.MockRepository
}

// newEnv builds a dashboard over two products with both platforms enabled.
// Woo has no consumer secret unless withWooSecret is set.
func newEnv(t *testing.T, withWooSecret bool) *env {
	t.Helper()
	clk := clock.NewManual(epoch)
	logger := testLogger()

	repo := storage.NewMockRepository()
	require.NoError(t, repo.UpsertProducts([]catalog.Product{
		{ID: "1", SKU: "PRD-001", Name: "Wireless Headphones", Category: "Electronics",
			Inventory: 45, Price: 129.99, SyncStatus: catalog.StatusPending,
			Platforms: []platform.ID{platform.LojaIntegrada, platform.WooCommerce}},
		{ID: "2", SKU: "PRD-002", Name: "Coffee Maker", Category: "Kitchen",
			Inventory: 8, Price: 89.5, SyncStatus: catalog.StatusPending,
			Platforms: []platform.ID{platform.WooCommerce}},
	}))

	pcfg := config.Default().Platforms
	pcfg.LojaIntegrada.APIKey = "api"
	pcfg.LojaIntegrada.AppKey = "app"
	pcfg.LojaIntegrada.RateLimit = 1000
	pcfg.WooCommerce.BaseURL = "https://shop.example.com"
	pcfg.WooCommerce.ConsumerKey = "ck"
	pcfg.WooCommerce.RateLimit = 1000
	if withWooSecret {
		pcfg.WooCommerce.ConsumerSecret = "cs"
	}

	m := metrics.New(prometheus.NewRegistry())
	clients := platforms.NewRegistry(pcfg, logger)
	gen := platforms.NewCatalogGenerator(repo, clients, clk, m, logger)

	engine, err := syncjob.NewEngine(syncjob.Config{
		DurationSeconds: 50,
		TickInterval:    time.Second,
		ProgressStep:    100,
	}, gen, clk, logger)
	require.NoError(t, err)

	ctrl, err := dashboard.New(dashboard.Config{
		Platforms: []platform.ID{platform.LojaIntegrada, platform.WooCommerce},
	}, dashboard.Deps{
		Engine:     engine,
		Aggregator: logagg.New(logagg.Metrics{}, nil, 0, logger),
		Repository: repo,
		Clients:    clients,
		Metrics:    m,
		Clock:      clk,
		Logger:     logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctrl.Close()
		_ = engine.Shutdown(context.Background())
	})
	return &env{ctrl: ctrl, clock: clk, repo: repo}
}

// start begins a sync of every product on both platforms and returns the
// job's progress ticker.
func (e *env) start(t *testing.T) *clock.ManualTicker {
	t.Helper()
	_, err := e.ctrl.StartSync(dashboard.StartRequest{
		Platforms:        []platform.ID{platform.LojaIntegrada, platform.WooCommerce},
		SyncType:         syncjob.SyncAll,
		ProductSelection: syncjob.SelectAll,
	})
	require.NoError(t, err)
	return e.progressTicker(t)
}

// progressTicker claims the two tickers of the job just started and returns
// the progress one.
func (e *env) progressTicker(t *testing.T) *clock.ManualTicker {
	t.Helper()
	progress, ok := e.clock.Ticker(waitTimeout)
	require.True(t, ok, "progress ticker not created")
	_, ok = e.clock.Ticker(waitTimeout)
	require.True(t, ok, "countdown ticker not created")
	return progress
}

// runToCompletion starts a sync and waits until the dashboard records it.
func (e *env) runToCompletion(t *testing.T) {
	t.Helper()
	progress := e.start(t)
	require.True(t, progress.Fire(waitTimeout))
	require.Eventually(t, func() bool {
		s := e.ctrl.Snapshot().Status
		return s == dashboard.StatusSuccess || s == dashboard.StatusError
	}, waitTimeout, 5*time.Millisecond)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
