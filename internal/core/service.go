package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout bounds one import call.
const DefaultImportTimeout = 10 * time.Minute

// recordTimeout bounds the best-effort history and event writes after a run.
const recordTimeout = 5 * time.Second

// ServiceConfig wires the optional collaborators of a Service.
type ServiceConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
	MaxWait       time.Duration

	Runs     RunLog   // nil disables run history
	Notifier Notifier // nil disables completion events
	Observer Observer // nil disables metrics
}

// Service is the entry point used by the HTTP server and the CLI.
// It adds tenant checks, concurrency limits, timeouts, history and events
// around an Importer.
type Service struct {
	importer *Importer
	limiter  *ImportLimiter
	timeout  time.Duration
	runs     RunLog
	notifier Notifier
	observer Observer
}

// NewService creates a Service around importer.
func NewService(importer *Importer, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Service{
		importer: importer,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  cfg.Timeout,
		runs:     cfg.Runs,
		notifier: cfg.Notifier,
		observer: cfg.Observer,
	}
}

// ImportRequest is one call into the engine.
type ImportRequest struct {
	Mode     Mode
	TenantID string
	Payload  *Payload
}

// Import validates the request at the boundary and runs the engine.
// A returned error means the engine never started; otherwise the outcome,
// including failure, is in the result.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Mode != ModeDryRun && req.Mode != ModeImport {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.Mode == ModeImport || req.TenantID != "" {
		if err := ValidateTenantID(req.TenantID); err != nil {
			return nil, err
		}
	}
	if req.Payload == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	// Dry runs never write and skip the limiter.
	if req.Mode == ModeImport {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runID := uuid.New().String()
	started := time.Now()
	log := logging.WithFields(ctx, "run_id", runID, "tenant", req.TenantID)

	s.observer.RunStarted(req.Mode)
	res := s.importer.Run(runCtx, runID, req.Mode, req.TenantID, req.Payload)
	s.observer.RunFinished(res, time.Since(started))

	if req.Mode == ModeImport && res.State == StateCompleted {
		s.afterImport(ctx, log, res, started)
	}
	return res, nil
}

// afterImport records history and publishes the completion event. Neither
// may change the result; failures are logged.
func (s *Service) afterImport(ctx context.Context, log *slog.Logger, res *ImportResult, started time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if s.runs != nil {
		imported, errs := res.Totals()
		run := RunRecord{
			ID:         res.RunID,
			TenantID:   res.TenantID,
			Mode:       res.Mode,
			Success:    res.Success,
			State:      res.State,
			Imported:   imported,
			Errors:     errs,
			Summary:    res.Summary,
			Actor:      ActorFromContext(ctx),
			ClientIP:   ClientIPFromContext(ctx),
			StartedAt:  started.UTC(),
			DurationMs: res.DurationMs,
		}
		if err := s.runs.RecordRun(ctx, run); err != nil {
			log.Warn("failed to record import run", "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.ImportCompleted(ctx, res); err != nil {
			log.Warn("failed to publish import event", "error", err)
		}
	}
}

// Validate runs a dry run that is not tied to a tenant.
func (s *Service) Validate(ctx context.Context, p *Payload) (*ImportResult, error) {
	return s.Import(ctx, ImportRequest{Mode: ModeDryRun, Payload: p})
}

// Tables returns the catalog in import order.
func (s *Service) Tables() []TableDescriptor {
	return s.importer.Catalog().OrderedTables()
}

// History lists the most recent runs for a tenant.
func (s *Service) History(ctx context.Context, tenantID string, limit int) ([]RunRecord, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRuns(ctx, tenantID, limit)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ValidateTenantID checks that id is a UUID.
func ValidateTenantID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, id)
	}
	return nil
}
