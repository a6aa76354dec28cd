package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tenantrestore/internal/config"
	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/JonMunkholm/tenantrestore/internal/core/tables"
	"github.com/JonMunkholm/tenantrestore/internal/events"
	"github.com/JonMunkholm/tenantrestore/internal/logging"
	"github.com/JonMunkholm/tenantrestore/internal/metrics"
	"github.com/JonMunkholm/tenantrestore/internal/store"
	"github.com/JonMunkholm/tenantrestore/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_batch_size", cfg.Import.BatchSize,
		"success_policy", cfg.Import.SuccessPolicy,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	catalog := tables.Clinic()
	if err := catalog.CheckOrder(); err != nil {
		slog.Error("invalid table catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("tables registered", "count", catalog.Len())

	publisher, err := events.Connect(cfg.Events.AMQPURL, cfg.Events.Exchange, slog.Default())
	if err != nil {
		// Events are best effort; imports still work without a broker.
		slog.Warn("event broker unavailable, import events disabled", "error", err)
		publisher = events.Nop{}
	}
	defer publisher.Close()

	policy, _ := core.PolicyByName(cfg.Import.SuccessPolicy) // validated by config
	recorder := metrics.NewRecorder(nil)
	pg := store.NewPostgres(pool, cfg.Import.RetryAttempts)

	importer := core.NewImporter(catalog, pg, core.Options{
		BatchSize:      cfg.Import.BatchSize,
		MaxRowWarnings: cfg.Import.MaxRowWarnings,
		FKCheckLimit:   cfg.Import.FKCheckLimit,
		Policy:         policy,
		Observer:       recorder,
	})
	service := core.NewService(importer, core.ServiceConfig{
		Timeout:       cfg.Import.Timeout,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		Runs:          pg,
		Notifier:      publisher,
		Observer:      recorder,
	})

	server := web.NewServer(service, cfg, recorder.Handler())

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running imports before closing the pool
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
