// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsLoaded        *prometheus.CounterVec
	BarsStandardized  prometheus.Counter
	SchemaViolations  prometheus.Counter
	MissingBarsFilled *prometheus.CounterVec
	OutliersMarked    prometheus.Counter

	// Backtest metrics
	RollEventsEmitted prometheus.Counter
	SignalsComputed   *prometheus.CounterVec
	TradesGenerated   *prometheus.CounterVec
	ReconciliationGap prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vol_rv_lab"
	}

	return &Metrics{
		// Ingestion metrics
		RowsLoaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_loaded_total",
			Help:      "Total number of raw CSV rows loaded by source",
		}, []string{"source"}),
		BarsStandardized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "bars_standardized_total",
			Help:      "Total number of bars standardized to the canonical schema",
		}),
		SchemaViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "schema_violations_total",
			Help:      "Total number of schema validation failures",
		}),
		MissingBarsFilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "missing_bars_filled_total",
			Help:      "Total number of missing values filled per field",
		}, []string{"field"}),
		OutliersMarked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "outliers_marked_total",
			Help:      "Total number of observations marked as outliers",
		}),

		// Backtest metrics
		RollEventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "roll_events_total",
			Help:      "Total number of futures roll events emitted",
		}),
		SignalsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "computed_total",
			Help:      "Total number of signal series computed by name",
		}, []string{"signal"}),
		TradesGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_generated_total",
			Help:      "Total number of trades generated by type",
		}, []string{"trade_type"}),
		ReconciliationGap: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "attribution_max_abs_error",
			Help:      "Max absolute attribution reconciliation error of the last run",
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"stage", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

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
			Help:      "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRowsLoaded adds to the rows-loaded counter for one source.
func RecordRowsLoaded(source string, n int) {
	DefaultMetrics.RowsLoaded.WithLabelValues(source).Add(float64(n))
}

// RecordTradeGenerated increments the trade counter for one type.
func RecordTradeGenerated(tradeType string) {
	DefaultMetrics.TradesGenerated.WithLabelValues(tradeType).Inc()
}

// RecordSignalComputed increments the signal counter for one name.
func RecordSignalComputed(signal string) {
	DefaultMetrics.SignalsComputed.WithLabelValues(signal).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordStageRun records one pipeline stage execution.
func RecordStageRun(stage, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}
