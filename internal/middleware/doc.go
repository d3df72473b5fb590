// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package middleware provides the infrastructure HTTP middleware shared by every
route of the document store API.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauges, labelled
    by chi route pattern so document ids do not explode label cardinality
  - AccessLog: one structured zerolog line per request

Both wrap the response writer with chi's WrapResponseWriter, which keeps
http.Hijacker available for WebSocket upgrades.

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
