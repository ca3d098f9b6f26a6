// Package metrics provides Prometheus metrics for report generation operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	// ReportCount tracks the total number of report generation attempts
	ReportCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonereport_reports_total",
		Help: "The total number of report generation attempts",
	}, []string{"zone", "trigger", "status"})

	// ReportDuration measures time taken to generate a report end to end
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonereport_report_duration_seconds",
		Help:    "Time taken to generate a report",
		Buckets: prometheus.DefBuckets,
	}, []string{"zone"})

	// ConversionDuration measures time spent in document conversion
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonereport_conversion_duration_seconds",
		Help:    "Time taken to convert a rendered report to a document",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
	}, []string{"engine", "status"})

	// UpstreamQueryCount tracks queries issued to the analytics API
	UpstreamQueryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonereport_upstream_queries_total",
		Help: "The total number of queries issued to the upstream analytics API",
	}, []string{"dataset", "shape", "status"})

	// CappedResultCount counts aggregations that hit the upstream row cap
	CappedResultCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonereport_capped_results_total",
		Help: "The total number of aggregations truncated by the upstream row cap",
	}, []string{"zone"})

	// ReportFileDeletes counts physical report file delete attempts
	ReportFileDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonereport_report_file_deletions_total",
		Help: "The total number of report file delete attempts",
	}, []string{"status"})

	// LastReportTimestamp records timestamp of the last successful report per zone
	LastReportTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zonereport_last_report_timestamp",
		Help: "Timestamp of the last successful report",
	}, []string{"zone"})
)
