// Package store implements the importer's destination and run history on
// PostgreSQL using pgx.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Retry defaults for deadlocks and serialization failures.
const (
	DefaultRetryAttempts = 3
	retryMinDelay        = 50 * time.Millisecond
	retryMaxDelay        = 2 * time.Second
)

// Postgres writes backup rows and import history.
type Postgres struct {
	db      DBTX
	retries int
}

// NewPostgres creates a store over db. retries is the number of extra
// attempts after a deadlock or serialization failure.
func NewPostgres(db DBTX, retries int) *Postgres {
	if retries < 0 {
		retries = DefaultRetryAttempts
	}
	return &Postgres{db: db, retries: retries}
}

var _ core.Store = (*Postgres)(nil)
var _ core.RunLog = (*Postgres)(nil)

// InsertMany inserts all records in one statement and returns their new ids
// in order. On error nothing is written.
func (p *Postgres) InsertMany(ctx context.Context, table string, records []core.Record) ([]string, error) {
	query, args, err := buildInsert(table, records)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = p.withRetry(ctx, table, func() error {
		rows, err := p.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("insert %d rows into %s", len(records), table), err)
	}
	return ids, nil
}

// InsertOne inserts a single record and returns its new id.
func (p *Postgres) InsertOne(ctx context.Context, table string, record core.Record) (string, error) {
	query, args, err := buildInsert(table, []core.Record{record})
	if err != nil {
		return "", err
	}

	var id string
	err = p.withRetry(ctx, table, func() error {
		return p.db.QueryRow(ctx, query, args...).Scan(&id)
	})
	if err != nil {
		return "", classify("insert into "+table, err)
	}
	return id, nil
}

// withRetry runs fn again after deadlocks and serialization failures.
func (p *Postgres) withRetry(ctx context.Context, table string, fn func() error) error {
	backoff := NewBackoff(retryMinDelay, retryMaxDelay, 2)
	for {
		err := fn()
		if err == nil || !isRetryable(err) || backoff.Attempts() >= p.retries {
			return err
		}
		slog.Debug("retrying insert after transient conflict",
			"table", table,
			"attempt", backoff.Attempts()+1,
			"error", err,
		)
		if werr := backoff.Wait(ctx); werr != nil {
			return werr
		}
	}
}
