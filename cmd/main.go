package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkoyama/zircon/internal/adapters/http/api"
	"github.com/rkoyama/zircon/internal/adapters/repository"
	service "github.com/rkoyama/zircon/internal/app"
	"github.com/rkoyama/zircon/internal/config"
	"github.com/rkoyama/zircon/internal/domain/catalog"
	"github.com/rkoyama/zircon/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Build the store and catalog for the configured backend. The sqlite
	// store doubles as the chart catalog via its charts table.
	opts := []service.Option{
		service.WithLogger(loggerInstance),
		service.WithLookupLimit(cfg.MaxLookupLimit),
		service.WithRequireToken(cfg.RequireToken),
		service.WithTokenCacheSize(cfg.TokenCacheSize),
	}
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
			return
		}
		if cfg.CatalogPath != "" {
			charts, err := catalog.LoadCharts(cfg.CatalogPath)
			if err != nil {
				os.Stderr.WriteString("failed to load catalog: " + err.Error() + "\n")
				return
			}
			if err := store.SeedCharts(ctx, charts); err != nil {
				os.Stderr.WriteString("failed to seed catalog: " + err.Error() + "\n")
				return
			}
		}
		opts = append(opts, service.WithStore(store), service.WithCatalog(store))
	default:
		cat, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			os.Stderr.WriteString("failed to load catalog: " + err.Error() + "\n")
			return
		}
		opts = append(opts, service.WithCatalog(cat))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater refreshes gauge metrics from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the tracked-players gauge as a side effect.
			_ = svc.GetStats()
		}
	}
}
