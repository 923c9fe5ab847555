package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "egressos_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// Exports counts export documents and rows by kind (person, judicial) and format (csv, xlsx)
	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egressos_exports_total",
			Help: "Number of export documents generated",
		},
		[]string{"kind", "format"},
	)
	ExportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egressos_exported_rows_total",
			Help: "Number of rows written to export documents",
		},
		[]string{"kind", "format"},
	)

	// RecordWrites counts registry writes by entity, operation and outcome
	RecordWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egressos_record_writes_total",
			Help: "Number of registry write transactions",
		},
		[]string{"entity", "operation", "status"},
	)

	// PhotoImports counts files handled by the bulk photo importer
	PhotoImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egressos_photo_imports_total",
			Help: "Number of files processed by the photo importer",
		},
		[]string{"result"},
	)
)
