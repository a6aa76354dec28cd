package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/tenantrestore/internal/config"
	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/JonMunkholm/tenantrestore/internal/core/tables"
	"github.com/JonMunkholm/tenantrestore/internal/events"
	"github.com/JonMunkholm/tenantrestore/internal/logging"
	"github.com/JonMunkholm/tenantrestore/internal/store"
)

// app is the engine wired for one CLI invocation.
type app struct {
	cfg     *config.Config
	service *core.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp loads configuration and builds the import service. Without apply
// no database is opened and only dry runs are possible.
func newApp(ctx context.Context, logOut io.Writer, apply bool) (*app, error) {
	load := config.LoadWithoutDatabase
	if apply {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	logging.SetupWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)

	a := &app{cfg: cfg}
	policy, _ := core.PolicyByName(cfg.Import.SuccessPolicy)

	var (
		dest core.Store
		runs core.RunLog
		note core.Notifier
	)
	if apply {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, withCode(exitDB, fmt.Errorf("connect database: %w", err))
		}
		a.closers = append(a.closers, pool.Close)

		pg := store.NewPostgres(pool, cfg.Import.RetryAttempts)
		dest, runs = pg, pg

		publisher, err := events.Connect(cfg.Events.AMQPURL, cfg.Events.Exchange, slog.Default())
		if err != nil {
			slog.Warn("event broker unavailable, import events disabled", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = publisher.Close() })
			note = publisher
		}
	}

	importer := core.NewImporter(tables.Clinic(), dest, core.Options{
		BatchSize:      cfg.Import.BatchSize,
		MaxRowWarnings: cfg.Import.MaxRowWarnings,
		FKCheckLimit:   cfg.Import.FKCheckLimit,
		Policy:         policy,
	})
	a.service = core.NewService(importer, core.ServiceConfig{
		Timeout:       cfg.Import.Timeout,
		MaxConcurrent: 1,
		MaxWait:       cfg.Import.MaxWaitTime,
		Runs:          runs,
		Notifier:      note,
	})
	return a, nil
}

// readPayload decodes the backup named by path.
func readPayload(path string, stdin io.Reader) (*core.Payload, error) {
	in, err := openInput(path, stdin)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	p, err := core.DecodePayload(in)
	if err != nil {
		return nil, withCode(exitValidation, err)
	}
	return p, nil
}

// resultCode maps an engine result to the process exit code.
func resultCode(res *core.ImportResult) int {
	switch {
	case res.State == core.StateAborted:
		return exitValidation
	case !res.Success:
		return exitPartial
	default:
		return exitOK
	}
}
