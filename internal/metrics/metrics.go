// Package metrics exports import activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAborted = "aborted"
)

// Row outcomes.
const (
	RowImported = "imported"
	RowSkipped  = "skipped"
	RowError    = "error"
)

// Recorder implements core.Observer on a set of Prometheus collectors.
type Recorder struct {
	runs          *prometheus.CounterVec
	rows          *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	batchDuration prometheus.Histogram
	active        prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ core.Observer = (*Recorder)(nil)

// NewRecorder registers the import collectors with reg. A nil reg uses the
// default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Recorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_import_runs_total",
			Help: "Import runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_rows_total",
			Help: "Backup rows processed by table and outcome",
		}, []string{"table", "outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_batch_fallbacks_total",
			Help: "Batches that fell back to row-by-row inserts",
		}, []string{"table"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restore_import_duration_seconds",
			Help:    "Wall time of one import call",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "restore_batch_duration_seconds",
			Help: "Time spent writing a single batch, fallback included",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "restore_imports_active",
			Help: "Import calls currently running",
		}),
		gatherer: gatherer,
	}
}

func (r *Recorder) RunStarted(core.Mode) {
	r.active.Inc()
}

func (r *Recorder) RunFinished(res *core.ImportResult, elapsed time.Duration) {
	r.active.Dec()

	outcome := OutcomeFailure
	switch {
	case res.State == core.StateAborted:
		outcome = OutcomeAborted
	case res.Success:
		outcome = OutcomeSuccess
	}
	r.runs.WithLabelValues(string(res.Mode), outcome).Inc()
	r.runDuration.WithLabelValues(string(res.Mode)).Observe(elapsed.Seconds())
}

func (r *Recorder) BatchFinished(table string, _ int, elapsed time.Duration, fellBack bool) {
	r.batchDuration.Observe(elapsed.Seconds())
	if fellBack {
		r.fallbacks.WithLabelValues(table).Inc()
	}
}

func (r *Recorder) TableFinished(table string, s core.TableSummary) {
	r.rows.WithLabelValues(table, RowImported).Add(float64(s.Imported))
	r.rows.WithLabelValues(table, RowSkipped).Add(float64(s.Skipped))
	r.rows.WithLabelValues(table, RowError).Add(float64(s.Errors))
}

// Handler serves the registry the recorder was created with.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
