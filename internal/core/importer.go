package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/logging"
)

// Options tunes the importer. Zero values select the defaults.
type Options struct {
	BatchSize      int
	MaxRowWarnings int
	FKCheckLimit   int
	Policy         SuccessPolicy
	Observer       Observer
}

// Importer runs the validate and import pipeline against one destination store.
// An Importer holds no per-run state and may be shared between goroutines as
// long as its Store is.
type Importer struct {
	catalog *Catalog
	store   Store
	opts    Options
}

// NewImporter creates an importer over catalog writing to store.
// store may be nil for an importer that only ever runs dry runs.
func NewImporter(catalog *Catalog, store Store, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRowWarnings < 0 {
		opts.MaxRowWarnings = 0
	} else if opts.MaxRowWarnings == 0 {
		opts.MaxRowWarnings = DefaultMaxRowWarnings
	}
	if opts.FKCheckLimit <= 0 {
		opts.FKCheckLimit = DefaultFKCheckLimit
	}
	if opts.Policy == nil {
		opts.Policy = LenientPolicy
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Importer{catalog: catalog, store: store, opts: opts}
}

// Catalog returns the catalog the importer runs against.
func (im *Importer) Catalog() *Catalog {
	return im.catalog
}

// Validate runs the dry-run checks without touching the store.
func (im *Importer) Validate(p *Payload) ValidationResult {
	return Validate(p, im.catalog, im.opts.FKCheckLimit)
}

// Run executes one import call. It never returns an error: every failure
// after the boundary is reported inside the result.
//
// State machine: Validating -> Aborted | DryRunComplete | Importing -> Completed.
func (im *Importer) Run(ctx context.Context, runID string, mode Mode, tenantID string, p *Payload) *ImportResult {
	started := time.Now()
	res := newImportResult(mode, tenantID)
	res.RunID = runID
	defer func() {
		res.DurationMs = time.Since(started).Milliseconds()
	}()

	log := logging.WithFields(ctx, "run_id", runID, "tenant", tenantID, "mode", string(mode))

	validation, ds := validatePayload(p, im.catalog, im.opts.FKCheckLimit)
	if mode == ModeImport && tenantID == "" {
		validation.Errors = append(validation.Errors, fmt.Sprintf("%v: destination tenant is required", ErrInvalidTenant))
		validation.Valid = false
	}
	if mode == ModeImport && im.store == nil {
		validation.Errors = append(validation.Errors, fmt.Sprintf("%v: no destination configured", ErrStoreUnavailable))
		validation.Valid = false
	}
	res.Validation = validation

	if !validation.Valid {
		res.State = StateAborted
		log.Info("import aborted by validation", "errors", len(validation.Errors))
		return res
	}

	if mode == ModeDryRun {
		res.State = StateDryRunComplete
		res.Success = validation.Valid && len(validation.Errors) == 0
		log.Info("dry run complete", "warnings", len(validation.Warnings))
		return res
	}

	res.State = StateImporting
	log.Info("import started")

	writer := &batchWriter{
		store:          im.store,
		size:           im.opts.BatchSize,
		maxRowWarnings: im.opts.MaxRowWarnings,
		observer:       im.opts.Observer,
	}
	ids := NewIDMapper()

	for _, td := range im.catalog.OrderedTables() {
		rows, ok := ds.tables[td.Name]
		if !ok {
			continue
		}
		im.importTable(ctx, writer, td, rows, tenantID, ids, res)
	}

	imported, errs := res.Totals()
	res.Success = im.opts.Policy(imported, errs)
	res.State = StateCompleted

	log.Info("import completed",
		"success", res.Success,
		"imported", imported,
		"errors", errs,
		"by_old_id", res.MappingStats.ByOldID,
		"by_legacy_id", res.MappingStats.ByLegacyID,
	)
	return res
}

// importTable runs the batch writer for one table and folds its outcome into
// res. A panic is contained to the table and its unfinished rows become errors.
func (im *Importer) importTable(ctx context.Context, w *batchWriter, td TableDescriptor, rows []any, tenantID string, ids *IDMapper, res *ImportResult) {
	log := logging.WithFields(ctx, "run_id", res.RunID, "tenant", tenantID, "table", td.Name)

	records, skipped := splitRecords(rows)
	t := &tableRun{td: td, records: records}
	t.summary.Total = len(rows)
	t.summary.Skipped = skipped

	prepare := func(rec Record) Record {
		out := Sanitize(rec, td, tenantID)
		ResolveReferences(out, td, ids, &res.MappingStats)
		return out
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic during table import", "panic", r)
				t.abort(fmt.Errorf("internal error: %v", r))
			}
		}()
		w.writeTable(ctx, log, t, ids, prepare)
	}()

	res.Summary[td.Name] = t.summary
	res.Validation.Warnings = append(res.Validation.Warnings, t.warnings...)

	res.Details = append(res.Details, Detail{Table: td.Name, Action: ActionImported, Count: t.summary.Imported})
	if t.summary.Errors > 0 {
		res.Details = append(res.Details, Detail{Table: td.Name, Action: ActionErrors, Count: t.summary.Errors})
	}
	if t.summary.Skipped > 0 {
		res.Details = append(res.Details, Detail{Table: td.Name, Action: ActionSkipped, Count: t.summary.Skipped})
	}
	if t.fallback > 0 {
		res.Details = append(res.Details, Detail{Table: td.Name, Action: ActionFallback, Count: t.fallback})
	}

	im.opts.Observer.TableFinished(td.Name, t.summary)
	if len(rows) > 0 {
		log.Info("table imported",
			"total", t.summary.Total,
			"imported", t.summary.Imported,
			"skipped", t.summary.Skipped,
			"errors", t.summary.Errors,
		)
	}
}
