package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// Ingestion metrics
	FilesDiscovered   *prometheus.CounterVec
	RecordsParsed     *prometheus.CounterVec
	ParseErrorsTotal  *prometheus.CounterVec
	FilesDroppedTotal *prometheus.CounterVec

	// Pipeline metrics
	StageDuration       *prometheus.HistogramVec
	PipelineDuration    prometheus.Histogram
	TidyRowsTotal       *prometheus.CounterVec
	TimestampBumpsTotal prometheus.Counter

	// Join metrics
	JoinGapsTotal      prometheus.Counter
	MissingBoundsTotal prometheus.Counter
	RowsFilteredTotal  *prometheus.CounterVec

	// Data quality metrics
	OutOfRangeWindows prometheus.Gauge

	// Export metrics
	ExportedRowsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		FilesDiscovered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_discovered_total",
				Help:      "Total number of raw input files discovered by kind",
			},
			[]string{"kind"},
		),

		RecordsParsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_parsed_total",
				Help:      "Total number of raw records parsed by kind",
			},
			[]string{"kind"},
		),

		ParseErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of parse/schema errors by type",
			},
			[]string{"error_type"},
		),

		FilesDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_dropped_total",
				Help:      "Total number of input files dropped by reason (e.g. argos_superseded)",
			},
			[]string{"reason"},
		),

		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),

		PipelineDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of the full pipeline run in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		TidyRowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tidy_rows_total",
				Help:      "Total number of tidy rows produced by table",
			},
			[]string{"table"},
		),

		TimestampBumpsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timestamp_bumps_total",
				Help:      "Total number of location timestamps bumped forward to break collisions",
			},
		),

		JoinGapsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "join_gaps_total",
				Help:      "Total number of deployment ids with no metadata match",
			},
		),

		MissingBoundsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_bounds_total",
				Help:      "Total number of deployments with missing deploy start or end dates",
			},
		),

		RowsFilteredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_filtered_total",
				Help:      "Total number of rows dropped by the deployment date-range filter, by table",
			},
			[]string{"table"},
		),

		OutOfRangeWindows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "out_of_range_windows",
				Help:      "Number of behavior windows whose active proportion exceeds 1.0",
			},
		),

		ExportedRowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exported_rows_total",
				Help:      "Total number of rows written to output files by table",
			},
			[]string{"table"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordParseError increments the parse error counter
func (c *Collector) RecordParseError(errorType string) {
	c.ParseErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
