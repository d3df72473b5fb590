// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package metrics provides Prometheus metrics for the document store, the sync
gateway, the change feed, and the HTTP and WebSocket surfaces.

All metrics are registered on the default registry through promauto and are
exposed at /metrics by the API router:

	curl http://localhost:8640/metrics

# Available Metrics

Document store:
  - docstore_operations_total{backend,op,result}
  - docstore_operation_duration_seconds{backend,op}
  - docstore_subscriptions{backend}
  - docstore_listener_errors_total{backend,kind}
  - docstore_gc_runs_total{result}, docstore_gc_duration_seconds

Sync gateway:
  - sync_operations_total{op,kind,result} where result is success, duplicate or error
  - sync_background_failures_total{op,kind}
  - sync_counter_failures_total{field}
  - sync_active_subscriptions
  - sync_pipeline_messages_total{kind,op}

Change feed:
  - feed_published_total{kind}, feed_publish_errors_total, feed_received_total{kind}

HTTP and WebSocket:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests, api_rate_limit_hits_total{endpoint}
  - websocket_connections, websocket_messages_sent_total, websocket_subscriptions
  - websocket_errors_total{error_type}

Circuit breaker:
  - circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

	start := time.Now()
	doc, err := s.get(c, id)
	metrics.RecordDocstoreOperation("badger", "get", time.Since(start), err, errors.Is(err, ErrNotFound))

Example PromQL:

	# duplicate adds per minute by kind
	sum by (kind) (rate(sync_operations_total{result="duplicate"}[1m])) * 60

	# background failures
	rate(sync_background_failures_total[5m])

# Cardinality

Labels carry only bounded values: backend names, operation names, annotation
kinds, and route patterns. Project keys and document ids are never labels.

# Thread Safety

All recording functions are safe for concurrent use.
*/
package metrics
