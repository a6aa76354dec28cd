package core

import "time"

// Observer receives import activity for metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	RunStarted(mode Mode)
	RunFinished(result *ImportResult, elapsed time.Duration)
	BatchFinished(table string, rows int, elapsed time.Duration, fellBack bool)
	TableFinished(table string, summary TableSummary)
}

type nopObserver struct{}

func (nopObserver) RunStarted(Mode) {}
func (nopObserver) RunFinished(*ImportResult, time.Duration) {}
func (nopObserver) BatchFinished(string, int, time.Duration, bool) {}
func (nopObserver) TableFinished(string, TableSummary) {}
