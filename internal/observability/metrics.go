package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rainfall_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	SeriesConsumed  prometheus.Counter
	ReportsProduced prometheus.Counter
	AnalysisErrors  prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Analysis metrics.
	EventsDetected *prometheus.CounterVec // labels: category
	CurvesExcluded prometheus.Counter
	ReportCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SeriesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_consumed_total",
			Help:      "Total precipitation series read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total event reports written to the sink.",
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Total series that could not be analyzed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of series per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-analyze-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EventsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_detected_total",
			Help:      "Rainfall events detected by duration category.",
		}, []string{"category"}),
		CurvesExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curves_excluded_total",
			Help:      "Events left out of pattern fitting because their total was not positive.",
		}),
		ReportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.SeriesConsumed,
		m.ReportsProduced,
		m.AnalysisErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EventsDetected,
		m.CurvesExcluded,
		m.ReportCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SeriesConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "series_consumed_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reports_produced_total"}),
		AnalysisErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "analysis_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		EventsDetected:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "events_detected_total"}, []string{"category"}),
		CurvesExcluded:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "curves_excluded_total"}),
		ReportCache:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "report_cache_total"}, []string{"result"}),
	}
}
