package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eshaffer321/inventory-sync-manager/internal/adapters/platforms"
	"github.com/eshaffer321/inventory-sync-manager/internal/api"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/dashboard"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/logagg"
	"github.com/eshaffer321/inventory-sync-manager/internal/application/syncjob"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/config"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/logging"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/metrics"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/storage"
)

// shutdownTimeout bounds the graceful shutdown of server and engine.
const shutdownTimeout = 30 * time.Second

// LoadConfig resolves the configuration for flags. An explicit -config must
// exist; the default path falls back to environment variables.
func LoadConfig(flags *ServeFlags) (*config.Config, error) {
	var cfg *config.Config
	if flags.ConfigExplicit() {
		loaded, err := config.Load(flags.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", flags.ConfigPath, err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrEnv_WithPath(flags.ConfigPath)
	}

	if flags.Port > 0 {
		cfg.Server.Port = flags.Port
	}
	if flags.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// App is the wired application.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *storage.Storage
	Engine     *syncjob.Engine
	Controller *dashboard.Controller
	Server     *api.Server
	Registry   *prometheus.Registry

	// CredentialProblems lists enabled platforms that failed the startup check.
	CredentialProblems map[platform.ID]error
	Products           int
}

// Build opens storage, seeds the catalog and wires every component. The
// caller must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, flags *ServeFlags, logger *slog.Logger) (*App, error) {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Store: store}
	fail := func(err error) (*App, error) {
		_ = store.Close()
		return nil, err
	}

	if err := seedCatalog(store, cfg.Catalog.SeedPath, flags.NoSeed, logger); err != nil {
		return fail(err)
	}
	products, err := store.ListProducts()
	if err != nil {
		return fail(err)
	}
	app.Products = len(products)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	app.Registry = reg

	clk := clock.Real{}
	clients, problems := NewPlatformClients(ctx, cfg.Platforms, logger.With("component", "platforms"))
	app.CredentialProblems = problems

	generator := platforms.NewCatalogGenerator(store, clients, clk, m, logger.With("component", "generator"))
	engine, err := syncjob.NewEngine(syncjob.Config{
		DurationSeconds: cfg.Sync.DurationSeconds,
		TickInterval:    cfg.Sync.TickInterval,
		ProgressStep:    cfg.Sync.ProgressStep,
	}, generator, clk, logger.With("component", "engine"))
	if err != nil {
		return fail(err)
	}
	app.Engine = engine

	aggregator := logagg.New(logagg.Metrics{}, nil, cfg.Sync.LogRetention, logger.With("component", "logagg"))

	ctrl, err := dashboard.New(dashboard.Config{
		Platforms:      cfg.Platforms.Enabled(),
		ErrorThreshold: cfg.Schedule.ErrorThreshold,
	}, dashboard.Deps{
		Engine:     engine,
		Aggregator: aggregator,
		Repository: store,
		Clients:    clients,
		Metrics:    m,
		Clock:      clk,
		Logger:     logger.With("component", "dashboard"),
	})
	if err != nil {
		_ = engine.Shutdown(context.Background())
		return fail(err)
	}
	app.Controller = ctrl

	app.Server = api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.Deps{
		Dashboard: ctrl,
		Recorder:  m,
		Gatherer:  reg,
		Clock:     clk,
	}, logger.With("component", "api"))

	return app, nil
}

// Close stops the scheduler, the engine and storage.
func (a *App) Close(ctx context.Context) error {
	if a.Controller != nil {
		a.Controller.Close()
	}
	var err error
	if a.Engine != nil {
		err = a.Engine.Shutdown(ctx)
	}
	if cerr := a.Store.Close(); err == nil {
		err = cerr
	}
	return err
}

// seedCatalog loads the seed file into an empty catalog. A catalog that
// already has products keeps its sync state across restarts.
func seedCatalog(store *storage.Storage, path string, skip bool, logger *slog.Logger) error {
	if path == "" || skip {
		return nil
	}
	existing, err := store.ListProducts()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Debug("catalog already populated, skipping seed", "products", len(existing))
		return nil
	}

	n, err := storage.Seed(store, path)
	if err != nil {
		return err
	}
	logger.Info("catalog seeded", "path", path, "products", n)
	return nil
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, flags *ServeFlags, out io.Writer) error {
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "inventory-sync")

	app, err := Build(context.Background(), cfg, flags, logger)
	if err != nil {
		return err
	}

	PrintConfiguration(out, cfg, app.Products)
	PrintCredentialWarnings(out, app.CredentialProblems)

	app.Controller.StartScheduler(cfg.Schedule.Interval())

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		if err := app.Close(ctx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := app.Server.Start(); err != nil {
		signal.Stop(quit)
		_ = app.Close(context.Background())
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
