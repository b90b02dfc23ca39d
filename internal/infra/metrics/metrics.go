// Package metrics provides Prometheus metrics for gisstore.
// Counters, gauges and histograms for model persistence, verification and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistTotal counts Persist calls by result ("committed" or "failed").
var PersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gisstore",
	Name:      "persist_total",
	Help:      "Total model persist attempts by result.",
}, []string{"result"})

// PersistFailures counts failed Persist calls by error kind.
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gisstore",
	Name:      "persist_failures_total",
	Help:      "Failed model persist attempts by error kind.",
}, []string{"kind"})

// PersistDuration tracks wall time of a whole Persist call in seconds.
var PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "gisstore",
	Name:      "persist_duration_seconds",
	Help:      "Duration of model persist calls in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
})

// RowsWritten counts committed rows per table.
var RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gisstore",
	Name:      "rows_written_total",
	Help:      "Rows committed to persisted artifacts, per table.",
}, []string{"table"})

// PersistActive tracks persist calls currently in flight.
var PersistActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "gisstore",
	Name:      "persist_active",
	Help:      "Number of persist calls in flight.",
})

// ─── Verification ───────────────────────────────────────────────────────────

// VerifyTotal counts artifact verifications by result ("ok" or "failed").
var VerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gisstore",
	Name:      "verify_total",
	Help:      "Artifact verifications by result.",
}, []string{"result"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "gisstore",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gisstore",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
