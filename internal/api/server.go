package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/handlers"
	"github.com/eshaffer321/inventory-sync-manager/internal/api/middleware"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/clock"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
	}
}

// Deps are the collaborators of a Server. Without a Dashboard only /health
// and /metrics are served.
type Deps struct {
	Dashboard handlers.Dashboard
	// Recorder receives per-request HTTP metrics.
	Recorder middleware.Recorder
	// Gatherer is served on /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Clock    clock.Clock
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging and HTTP metrics
	s.router.Use(middleware.Instrument(s.logger, s.deps.Recorder))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.deps.Dashboard, s.deps.Clock)
	s.router.Get("/health", healthHandler.ServeHTTP)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if s.deps.Dashboard == nil {
		return
	}
	dash := s.deps.Dashboard

	s.router.Route("/api", func(r chi.Router) {
		dashboardHandler := handlers.NewDashboardHandler(dash, s.logger)
		r.Get("/dashboard", dashboardHandler.Get)

		// Live sync job
		syncHandler := handlers.NewSyncHandler(dash, s.logger)
		r.Get("/sync", syncHandler.GetSync)
		r.Post("/sync", syncHandler.StartSync)
		r.Delete("/sync", syncHandler.CancelSync)

		// Sync runs (historical)
		runsHandler := handlers.NewRunsHandler(dash, s.logger)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)

		// Product table
		productsHandler := handlers.NewProductsHandler(dash, s.logger)
		r.Get("/products", productsHandler.Get)
		r.Put("/products/filter", productsHandler.SetFilter)
		r.Post("/products/sort", productsHandler.Sort)
		r.Post("/products/toggle-all", productsHandler.ToggleAll)
		r.Post("/products/refresh", productsHandler.Refresh)
		r.Post("/products/{id}/toggle", productsHandler.Toggle)

		// Sync logs
		logsHandler := handlers.NewLogsHandler(dash, s.deps.Clock, s.logger)
		r.Get("/logs", logsHandler.List)
		r.Get("/logs/export", logsHandler.Export)

		platformsHandler := handlers.NewPlatformsHandler(dash, s.logger)
		r.Post("/platforms/{id}/test", platformsHandler.Test)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
