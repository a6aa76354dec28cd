package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBatchSize is the number of rows sent in one multi-row insert.
const DefaultBatchSize = 50

// DefaultMaxRowWarnings caps the row failure messages reported per table.
const DefaultMaxRowWarnings = 5

// tableRun tracks the progress of one table through the batch importer.
type tableRun struct {
	td       TableDescriptor
	records  []Record
	done     int // records whose outcome is known
	summary  TableSummary
	fallback int
	warnings []string
	rowWarns int
}

func (t *tableRun) remaining() int {
	return len(t.records) - t.done
}

// abort counts every record without an outcome as an error.
func (t *tableRun) abort(err error) {
	n := t.remaining()
	t.summary.Errors += n
	t.done = len(t.records)
	t.warnings = append(t.warnings, fmt.Sprintf("%s: aborted, %d remaining record(s) counted as errors: %v", t.td.Name, n, err))
}

// batchWriter inserts one table's records in bounded batches and falls back
// to single-row inserts when a batch is rejected.
type batchWriter struct {
	store          Store
	size           int
	maxRowWarnings int
	observer       Observer
}

// writeTable runs the two-tier insert for all records of a table.
// prepare sanitizes and resolves a record; it runs once per record, before
// the batch containing it is sent.
func (w *batchWriter) writeTable(ctx context.Context, log *slog.Logger, t *tableRun, ids *IDMapper, prepare func(Record) Record) {
	for start := 0; start < len(t.records); start += w.size {
		if err := ctx.Err(); err != nil {
			log.Error("table aborted", "error", err, "remaining", t.remaining())
			t.abort(err)
			return
		}

		end := min(start+w.size, len(t.records))
		source := t.records[start:end]
		prepared := make([]Record, len(source))
		for i, rec := range source {
			prepared[i] = prepare(rec)
		}

		began := time.Now()
		newIDs, err := w.store.InsertMany(ctx, t.td.Name, prepared)
		if err == nil && len(newIDs) != len(prepared) {
			err = fmt.Errorf("%w: %d ids for %d rows", ErrIDCountMismatch, len(newIDs), len(prepared))
		}

		if err == nil {
			for i, rec := range source {
				ids.Record(t.td.Name, rec["id"], rec["legacy_id"], newIDs[i])
			}
			t.summary.Imported += len(source)
			t.done += len(source)
			w.observer.BatchFinished(t.td.Name, len(source), time.Since(began), false)
			continue
		}

		if IsInfrastructure(err) {
			log.Error("table aborted", "error", err, "remaining", t.remaining())
			t.abort(err)
			return
		}

		log.Warn("batch rejected, inserting rows individually",
			"error", err,
			"batch_start", start,
			"batch_rows", len(source),
		)
		t.fallback++

		if aborted := w.insertRows(ctx, log, t, ids, start, source, prepared); aborted {
			return
		}
		w.observer.BatchFinished(t.td.Name, len(source), time.Since(began), true)
	}
}

// insertRows inserts a rejected batch one row at a time. It returns true if
// an infrastructure failure aborted the table.
func (w *batchWriter) insertRows(ctx context.Context, log *slog.Logger, t *tableRun, ids *IDMapper, offset int, source, prepared []Record) bool {
	for i, rec := range prepared {
		newID, err := w.store.InsertOne(ctx, t.td.Name, rec)
		if err != nil && IsInfrastructure(err) {
			log.Error("table aborted during row fallback", "error", err, "remaining", t.remaining())
			t.abort(err)
			return true
		}

		t.done++
		if err != nil {
			t.summary.Errors++
			log.Debug("row rejected", "row", offset+i+1, "error", err)
			if t.rowWarns < w.maxRowWarnings {
				t.rowWarns++
				t.warnings = append(t.warnings, fmt.Sprintf("%s row %d rejected (Code: %s): %v", t.td.Name, offset+i+1, MapError(err).Code, err))
			}
			continue
		}

		ids.Record(t.td.Name, source[i]["id"], source[i]["legacy_id"], newID)
		t.summary.Imported++
	}
	return false
}
