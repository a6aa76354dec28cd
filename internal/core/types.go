// Package core provides the business logic for tenant backup imports.
// This package has no transport or driver dependencies and can be used by any frontend.
package core

import (
	"context"
	"encoding/json"
	"time"
)

// SupportedVersion is the only backup payload version the importer accepts.
const SupportedVersion = "1.0"

// TenantField is the column that scopes a row to a clinic.
const TenantField = "clinic_id"

// Mode selects between validation only and a real import.
type Mode string

const (
	ModeDryRun Mode = "dry_run"
	ModeImport Mode = "import"
)

// ParseMode converts a user supplied mode string. Empty input means dry run.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDryRun:
		return ModeDryRun, nil
	case ModeImport:
		return ModeImport, nil
	default:
		return "", ErrInvalidMode
	}
}

// State is the orchestrator phase an import run ended in.
type State string

const (
	StateValidating     State = "validating"
	StateAborted        State = "aborted"
	StateDryRunComplete State = "dry_run_complete"
	StateImporting      State = "importing"
	StateCompleted      State = "completed"
)

// Record is one exported row. Values keep their JSON types, numbers as json.Number.
type Record map[string]any

// Payload is a decoded backup envelope.
// Data is kept raw so that shape problems are reported by the validator
// instead of failing the decode.
type Payload struct {
	Version      string          `json:"version"`
	ClinicName   string          `json:"clinic_name,omitempty"`
	BackupDate   string          `json:"backup_date,omitempty"`
	RecordCounts map[string]int  `json:"record_counts,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// TableDescriptor is one Schema Catalog entry.
type TableDescriptor struct {
	Name           string            // Table name, identical in payload and destination
	RequiredFields []string          // Fields that must be present and non-blank
	ForeignKeys    map[string]string // Field name -> referenced table
	TenantScoped   bool              // Whether TenantField is overwritten with the destination tenant
}

// ValidationResult is the outcome of the dry-run checks.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// TableSummary counts what happened to the rows of one table.
// Total == Imported + Skipped + Errors once a run completes.
type TableSummary struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// MappingStats counts successful foreign key rewrites by lookup path.
type MappingStats struct {
	ByOldID    int `json:"by_old_id"`
	ByLegacyID int `json:"by_legacy_id"`
}

// Detail is one line of the per-table activity log.
type Detail struct {
	Table  string `json:"table"`
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Detail actions.
const (
	ActionImported = "imported"
	ActionErrors   = "errors"
	ActionSkipped  = "skipped"
	ActionFallback = "fallback"
)

// ImportResult is the structured outcome of every import call.
type ImportResult struct {
	Success      bool                    `json:"success"`
	Mode         Mode                    `json:"mode"`
	State        State                   `json:"state"`
	RunID        string                  `json:"run_id,omitempty"`
	TenantID     string                  `json:"tenant_id,omitempty"`
	Validation   ValidationResult        `json:"validation"`
	Summary      map[string]TableSummary `json:"summary"`
	MappingStats MappingStats            `json:"mapping_stats"`
	Details      []Detail                `json:"details"`
	DurationMs   int64                   `json:"duration_ms"`
}

// newImportResult creates a result with initialized collections so that
// JSON output never contains null arrays.
func newImportResult(mode Mode, tenantID string) *ImportResult {
	return &ImportResult{
		Mode:     mode,
		State:    StateValidating,
		TenantID: tenantID,
		Validation: ValidationResult{
			Errors:   []string{},
			Warnings: []string{},
		},
		Summary: make(map[string]TableSummary),
		Details: []Detail{},
	}
}

// Totals sums imported and error counts over all tables.
func (r *ImportResult) Totals() (imported, errors int) {
	for _, s := range r.Summary {
		imported += s.Imported
		errors += s.Errors
	}
	return imported, errors
}

// Store is the insert capability the importer needs from the destination.
// InsertMany must return one id per record, in insertion order, or an error
// with nothing written.
type Store interface {
	InsertMany(ctx context.Context, table string, records []Record) ([]string, error)
	InsertOne(ctx context.Context, table string, record Record) (string, error)
}

// RunRecord is the persisted history entry of an import run.
type RunRecord struct {
	ID         string                  `json:"id"`
	TenantID   string                  `json:"tenant_id"`
	Mode       Mode                    `json:"mode"`
	Success    bool                    `json:"success"`
	State      State                   `json:"state"`
	Imported   int                     `json:"imported"`
	Errors     int                     `json:"errors"`
	Summary    map[string]TableSummary `json:"summary"`
	Actor      string                  `json:"actor,omitempty"`
	ClientIP   string                  `json:"client_ip,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	DurationMs int64                   `json:"duration_ms"`
}

// RunLog persists import run history.
type RunLog interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, tenantID string, limit int) ([]RunRecord, error)
}

// Notifier announces finished imports to other systems.
type Notifier interface {
	ImportCompleted(ctx context.Context, result *ImportResult) error
}
