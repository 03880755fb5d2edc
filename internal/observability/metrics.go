// Package observability provides Prometheus metrics and logger construction.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Factor metrics
	FactorRunsTotal       *prometheus.CounterVec
	FactorComputeDuration *prometheus.HistogramVec
	FactorCleanRows       *prometheus.GaugeVec

	// Run metrics
	RunsTotal          *prometheus.CounterVec
	RunPhaseDuration   *prometheus.HistogramVec
	CorrelationsStored prometheus.Counter
	ReportsGenerated   prometheus.Counter

	// Ingestion metrics
	RecordsIngested *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quantlab"
	}

	return &Metrics{
		// Factor metrics
		FactorRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "factor",
			Name:      "runs_total",
			Help:      "Total number of factor computations by status",
		}, []string{"status"}),
		FactorComputeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "factor",
			Name:      "compute_duration_seconds",
			Help:      "Factor compute and analytics duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"factor"}),
		FactorCleanRows: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "factor",
			Name:      "clean_rows",
			Help:      "Number of dates in the latest clean factor",
		}, []string{"factor"}),

		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of batch runs by status",
		}, []string{"status"}),
		RunPhaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "phase_duration_seconds",
			Help:      "Batch run phase duration in seconds",
			Buckets:   []float64{0.1, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		CorrelationsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "correlations_stored_total",
			Help:      "Total number of correlation entries stored",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Ingestion metrics
		RecordsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Total number of dataset records ingested by dataset",
		}, []string{"dataset"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful batch run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFactor records one factor computation.
func RecordFactor(factor string, ok bool, seconds float64, rows int) {
	status := "success"
	if !ok {
		status = "failed"
	}
	DefaultMetrics.FactorRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.FactorComputeDuration.WithLabelValues(factor).Observe(seconds)
	if ok {
		DefaultMetrics.FactorCleanRows.WithLabelValues(factor).Set(float64(rows))
	}
}

// RecordRunPhase records the duration of a batch run phase.
func RecordRunPhase(phase string, seconds float64) {
	DefaultMetrics.RunPhaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordRun records a finished batch run.
func RecordRun(ok bool, unixSeconds int64) {
	if !ok {
		DefaultMetrics.RunsTotal.WithLabelValues("failed").Inc()
		return
	}
	DefaultMetrics.RunsTotal.WithLabelValues("success").Inc()
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}

// RecordCorrelations adds n stored correlation entries.
func RecordCorrelations(n int) {
	DefaultMetrics.CorrelationsStored.Add(float64(n))
}

// RecordReport increments the reports generated counter.
func RecordReport() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordIngested adds n ingested records of a dataset.
func RecordIngested(dataset string, n int) {
	DefaultMetrics.RecordsIngested.WithLabelValues(dataset).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
