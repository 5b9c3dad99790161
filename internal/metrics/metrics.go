package metrics

import (
	"context"
	"time"

	"github.com/compressly/compressly/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts the number of HTTP requests received
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compressly_requests_total",
			Help: "The total number of HTTP requests processed by the API",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compressly_request_duration_seconds",
			Help:    "The duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// CompressionsTotal counts compression operations by outcome
	CompressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compressly_compressions_total",
			Help: "The total number of compression operations",
		},
		[]string{"status"},
	)

	// CompressionDuration measures the duration of compression operations
	CompressionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compressly_compression_duration_seconds",
			Help:    "The duration of compression operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // From 100ms to ~100s
		},
		[]string{"status"},
	)

	// SizeReduction measures the size reduction percentage per item
	SizeReduction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compressly_size_reduction_percentage",
			Help:    "The percentage of size reduction for compressed images",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0% to 100% in 10% increments
		},
	)

	// BatchesInProgress gauges the number of batch runs currently in flight
	BatchesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compressly_batches_in_progress",
			Help: "The number of batch compression runs currently in flight",
		},
	)

	// ActiveSessions gauges the number of live compression sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compressly_active_sessions",
			Help: "The number of live compression sessions",
		},
	)

	// SavesTotal counts persistence bridge outcomes by stage
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compressly_saves_total",
			Help: "The total number of remote save attempts",
		},
		[]string{"outcome"},
	)
)

// RecordCompressionTime records the time taken to compress one item
func RecordCompressionTime(ctx context.Context, status string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	CompressionDuration.WithLabelValues(status).Observe(duration)
	CompressionsTotal.WithLabelValues(status).Inc()

	reqLogger := logger.FromContext(ctx)

	reqLogger.Debug().
		Str("status", status).
		Float64("duration_seconds", duration).
		Msg("Recorded compression time")
}

// RecordSizeReduction records the percentage of size reduction
func RecordSizeReduction(ctx context.Context, originalSize, compressedSize int64) {
	if originalSize <= 0 {
		return
	}

	percentage := (1 - (float64(compressedSize) / float64(originalSize))) * 100
	SizeReduction.Observe(percentage)

	reqLogger := logger.FromContext(ctx)

	reqLogger.Debug().
		Int64("original_size", originalSize).
		Int64("compressed_size", compressedSize).
		Float64("reduction_percentage", percentage).
		Msg("Recorded image size reduction")
}

// UpdateActiveSessions updates the live session gauge
func UpdateActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}
