// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document Store Metrics
	DocstoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"backend", "op", "result"}, // result: "success", "not_found", "error"
	)

	DocstoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend", "op"},
	)

	DocstoreSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docstore_subscriptions",
			Help: "Current number of active collection subscriptions",
		},
		[]string{"backend"},
	)

	DocstoreListenerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_listener_errors_total",
			Help: "Total number of subscription listener errors and panics",
		},
		[]string{"backend", "kind"},
	)

	DocstoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_gc_runs_total",
			Help: "Total number of value log garbage collection runs",
		},
		[]string{"result"},
	)

	DocstoreGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docstore_gc_duration_seconds",
			Help:    "Value log garbage collection duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync Gateway Metrics
	SyncOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Total number of remote sync operations",
		},
		[]string{"op", "kind", "result"}, // result: "success", "duplicate", "error"
	)

	SyncBackgroundFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_background_failures_total",
			Help: "Total number of swallowed background sync failures",
		},
		[]string{"op", "kind"},
	)

	SyncCounterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_counter_failures_total",
			Help: "Total number of failed project counter updates",
		},
		[]string{"field"},
	)

	SyncActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_active_subscriptions",
			Help: "Current number of realtime subscriptions held by open projects",
		},
	)

	// Pipeline Metrics
	PipelineMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pipeline_messages_total",
			Help: "Total number of local mutations handled by the sync pipeline",
		},
		[]string{"kind", "op"},
	)

	// Change Feed Metrics
	FeedPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_published_total",
			Help: "Total number of change events published",
		},
		[]string{"kind"},
	)

	FeedPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_publish_errors_total",
			Help: "Total number of change events that failed to publish",
		},
	)

	FeedReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_received_total",
			Help: "Total number of change events received",
		},
		[]string{"kind"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscriptions",
			Help: "Current number of collection subscriptions held by WebSocket clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Auth Metrics
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"reason"}, // reason: "missing", "invalid", "expired"
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "result"}, // result: "allowed", "denied", "error"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDocstoreOperation records one document store call.
func RecordDocstoreOperation(backend, op string, duration time.Duration, err error, notFound bool) {
	result := "success"
	switch {
	case notFound:
		result = "not_found"
	case err != nil:
		result = "error"
	}
	DocstoreOperations.WithLabelValues(backend, op, result).Inc()
	DocstoreOperationDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordGC records a value log garbage collection run.
func RecordGC(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	DocstoreGCRuns.WithLabelValues(result).Inc()
	DocstoreGCDuration.Observe(duration.Seconds())
}

// RecordSyncOperation records a gateway call. duplicate takes precedence over err.
func RecordSyncOperation(op, kind string, duplicate bool, err error) {
	result := "success"
	switch {
	case duplicate:
		result = "duplicate"
	case err != nil:
		result = "error"
	}
	SyncOperations.WithLabelValues(op, kind, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
