package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// extraction and verification pipelines.
type Metrics struct {
	FilesProcessed prometheus.Counter
	RowsWritten    prometheus.Counter
	NoDataGaps     prometheus.Counter
	RegionFailures prometheus.Counter
	RunActive      prometheus.Gauge

	FileExtractDuration prometheus.Histogram

	// Verification metrics.
	RowsCompared        prometheus.Counter
	Mismatches          prometheus.Counter
	MissingCounterparts prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "files_processed_total",
			Help:      "Total NetCDF files processed.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "rows_written_total",
			Help:      "Total output rows appended across all region series.",
		}),
		NoDataGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "no_data_gaps_total",
			Help:      "Rows emitted as no-data gaps (every cell in range was missing).",
		}),
		RegionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "region_failures_total",
			Help:      "Regions dropped from a run due to grid mismatch.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_etl",
			Name:      "run_active",
			Help:      "1 while an extraction run is in flight, 0 otherwise.",
		}),
		FileExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "file_extract_duration_seconds",
			Help:      "Duration of extracting all regions from one NetCDF file.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RowsCompared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "verification_rows_compared_total",
			Help:      "CSV rows compared against recomputed grid values.",
		}),
		Mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "verification_mismatches_total",
			Help:      "Compared rows whose difference exceeded tolerance.",
		}),
		MissingCounterparts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "verification_missing_counterparts_total",
			Help:      "Rows present on one side only (CSV or source).",
		}),
	}

	prometheus.MustRegister(
		m.FilesProcessed,
		m.RowsWritten,
		m.NoDataGaps,
		m.RegionFailures,
		m.RunActive,
		m.FileExtractDuration,
		m.RowsCompared,
		m.Mismatches,
		m.MissingCounterparts,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesProcessed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "files_processed_total"}),
		RowsWritten:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "rows_written_total"}),
		NoDataGaps:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "no_data_gaps_total"}),
		RegionFailures:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "region_failures_total"}),
		RunActive:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_etl", Name: "run_active"}),
		FileExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "file_extract_duration_seconds"}),
		RowsCompared:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "verification_rows_compared_total"}),
		Mismatches:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "verification_mismatches_total"}),
		MissingCounterparts: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "verification_missing_counterparts_total"}),
	}
}
