package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mediavault"
	subsystem = "media_api"

	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads_total",
			Help:      "Total media uploads by kind and outcome",
		},
		[]string{"media_kind", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of accepted uploads",
		},
		[]string{"media_kind"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_operations_total",
			Help:      "Total blob storage operations",
		},
		[]string{"backend", "operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_duration_seconds",
			Help:      "Blob storage operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"backend", "operation"},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "thumbnails_total",
			Help:      "Thumbnail derivations by outcome",
		},
		[]string{"status"},
	)

	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "thumbnail_duration_seconds",
			Help:      "Thumbnail derivation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Workflow notifications by operation and outcome",
		},
		[]string{"operation", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records an upload attempt. Bytes count only on success.
func RecordUpload(mediaKind, status string, bytes int64) {
	if mediaKind == "" {
		mediaKind = "unknown"
	}
	UploadsTotal.WithLabelValues(mediaKind, status).Inc()
	if status == StatusSuccess {
		UploadBytesTotal.WithLabelValues(mediaKind).Add(float64(bytes))
	}
}

// RecordStorageOperation records a blob storage call
func RecordStorageOperation(backend, operation, status string, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	StorageDuration.WithLabelValues(backend, operation).Observe(durationSec)
}

// RecordThumbnail records a thumbnail derivation
func RecordThumbnail(status string, durationSec float64) {
	ThumbnailsTotal.WithLabelValues(status).Inc()
	ThumbnailDuration.Observe(durationSec)
}

// RecordNotification records a workflow notification delivery
func RecordNotification(operation, status string) {
	NotificationsTotal.WithLabelValues(operation, status).Inc()
}

// Outcome maps an error to a status label.
func Outcome(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
