// Package events announces finished imports to other services.
package events

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/core"
)

// RoutingKey is the topic used for finished real imports.
const RoutingKey = "tenant.import.completed"

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "restore.events"

// ImportCompleted is the message body published after an import.
type ImportCompleted struct {
	RunID      string    `json:"run_id"`
	TenantID   string    `json:"tenant_id"`
	Success    bool      `json:"success"`
	Imported   int       `json:"imported"`
	Errors     int       `json:"errors"`
	Tables     []string  `json:"tables"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewImportCompleted builds the event for res. Tables lists every table
// that had at least one row in the backup, sorted.
func NewImportCompleted(res *core.ImportResult, finished time.Time) ImportCompleted {
	imported, errs := res.Totals()

	tables := make([]string, 0, len(res.Summary))
	for name, s := range res.Summary {
		if s.Total > 0 {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)

	return ImportCompleted{
		RunID:      res.RunID,
		TenantID:   res.TenantID,
		Success:    res.Success,
		Imported:   imported,
		Errors:     errs,
		Tables:     tables,
		FinishedAt: finished.UTC(),
	}
}

// Publisher is a core.Notifier that holds a broker connection.
type Publisher interface {
	core.Notifier
	Close() error
}

// Connect returns an AMQP publisher for url, or Nop when url is empty.
func Connect(url, exchange string, logger *slog.Logger) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	p, err := NewAMQPPublisher(url, exchange, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) ImportCompleted(context.Context, *core.ImportResult) error { return nil }

func (Nop) Close() error { return nil }

var _ Publisher = Nop{}
