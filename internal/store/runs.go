package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/jackc/pgx/v5"
)

// RunsTableDDL creates the table RecordRun and ListRuns use. It is applied
// by deployment tooling, not by the importer.
const RunsTableDDL = `
CREATE TABLE IF NOT EXISTS import_runs (
    id          uuid PRIMARY KEY,
    tenant_id   text        NOT NULL,
    mode        text        NOT NULL,
    success     boolean     NOT NULL,
    state       text        NOT NULL,
    imported    integer     NOT NULL,
    errors      integer     NOT NULL,
    summary     jsonb       NOT NULL,
    actor       text,
    client_ip   text,
    started_at  timestamptz NOT NULL,
    duration_ms bigint      NOT NULL
);
CREATE INDEX IF NOT EXISTS import_runs_tenant_started_idx ON import_runs (tenant_id, started_at DESC);
`

// RecordRun stores the outcome of one import.
func (p *Postgres) RecordRun(ctx context.Context, run core.RunRecord) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO import_runs
			(id, tenant_id, mode, success, state, imported, errors, summary, actor, client_ip, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $12)`,
		run.ID, run.TenantID, string(run.Mode), run.Success, string(run.State),
		run.Imported, run.Errors, string(summary), run.Actor, run.ClientIP,
		run.StartedAt, run.DurationMs,
	)
	return classify("record import run", err)
}

// ListRuns returns the latest runs for a tenant, newest first.
func (p *Postgres) ListRuns(ctx context.Context, tenantID string, limit int) ([]core.RunRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id::text, tenant_id, mode, success, state, imported, errors, summary,
		       COALESCE(actor, ''), COALESCE(client_ip, ''), started_at, duration_ms
		FROM import_runs
		WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, classify("list import runs", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.RunRecord, error) {
		var (
			r       core.RunRecord
			mode    string
			state   string
			summary []byte
		)
		if err := row.Scan(&r.ID, &r.TenantID, &mode, &r.Success, &state, &r.Imported, &r.Errors,
			&summary, &r.Actor, &r.ClientIP, &r.StartedAt, &r.DurationMs); err != nil {
			return r, err
		}
		r.Mode = core.Mode(mode)
		r.State = core.State(state)
		if err := json.Unmarshal(summary, &r.Summary); err != nil {
			return r, fmt.Errorf("decode summary of run %s: %w", r.ID, err)
		}
		return r, nil
	})
	if err != nil {
		return nil, classify("scan import runs", err)
	}
	return runs, nil
}
