// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	t.Parallel()
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if captured != responseID {
		t.Errorf("context id %q != header id %q", captured, responseID)
	}
}

func TestRequestID_UpstreamID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		upstream string
		keep     bool
	}{
		{"preserved", "proxy-123", true},
		{"too long", strings.Repeat("x", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured, correlation string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = logging.RequestIDFromContext(r.Context())
				correlation = logging.CorrelationIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, tt.upstream)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if (captured == tt.upstream) != tt.keep {
				t.Errorf("request id = %q, keep upstream = %v", captured, tt.keep)
			}
			if correlation == "" {
				t.Error("correlation id not set")
			}
		})
	}
}

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/projects/{project}/{kind}/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	const pattern = "/api/v1/projects/{project}/{kind}/{id}"
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/projects/castle.png/points/"+id, nil))
	}

	if got := testutil.ToFloat64(counter); got != before+3 {
		t.Errorf("api_requests_total{%s} = %v, want %v", pattern, got, before+3)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != 0 {
		t.Errorf("active requests = %v after completion", got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "200")
	before := testutil.ToFloat64(counter)

	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("unmatched counter = %v, want %v", got, before+1)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/projects/x", nil))

	out := buf.String()
	for _, want := range []string{`"status":502`, `"method":"DELETE"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line lacks %s: %s", want, out)
		}
	}
}
