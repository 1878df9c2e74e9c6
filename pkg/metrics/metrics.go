// Package metrics provides Prometheus metrics for drop traversals.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	traversalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropzone_traversals_total",
			Help: "Total number of drop traversals",
		},
		[]string{"result"},
	)

	traversalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dropzone_traversal_duration_seconds",
			Help:    "Time to flatten and materialize one drop",
			Buckets: prometheus.DefBuckets,
		},
	)

	directoryBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dropzone_directory_batches_total",
			Help: "Total number of directory batches read, including the terminating empty batch",
		},
	)

	directoryReadErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dropzone_directory_read_errors_total",
			Help: "Total number of directory listings truncated by a read error",
		},
	)

	materializationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropzone_materializations_total",
			Help: "Total number of file materializations",
		},
		[]string{"result"},
	)
)

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTraversal records a finished traversal.
func RecordTraversal(result string, duration time.Duration) {
	traversalsTotal.WithLabelValues(result).Inc()
	traversalDuration.Observe(duration.Seconds())
}

// RecordDirectoryBatch records one ReadEntries call that returned.
func RecordDirectoryBatch() {
	directoryBatchesTotal.Inc()
}

// RecordDirectoryReadError records a directory listing cut short.
func RecordDirectoryReadError() {
	directoryReadErrorsTotal.Inc()
}

// RecordMaterialization records the outcome of one file materialization.
func RecordMaterialization(result string) {
	materializationsTotal.WithLabelValues(result).Inc()
}
