// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/mapmark/internal/metrics"
)

// echoSubject writes the authenticated subject id.
var echoSubject = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	s := GetAuthSubject(r.Context())
	if s == nil {
		http.Error(w, "no subject", http.StatusInternalServerError)
		return
	}
	role := ""
	if len(s.Roles) > 0 {
		role = s.Roles[0]
	}
	w.Header().Set("X-Role", role)
	_, _ = w.Write([]byte(s.ID))
})

func TestParseAuthMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    AuthMode
		wantErr bool
	}{
		{"", AuthModeNone, false},
		{"none", AuthModeNone, false},
		{"jwt", AuthModeJWT, false},
		{"basic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAuthMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAuthMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestAuthenticate_ModeNone(t *testing.T) {
	t.Parallel()
	mw := NewMiddleware(AuthModeNone, nil, "editor")

	rec := httptest.NewRecorder()
	mw.Authenticate(echoSubject).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != AnonymousID || rec.Header().Get("X-Role") != "editor" {
		t.Errorf("subject = %q role %q", rec.Body.String(), rec.Header().Get("X-Role"))
	}
}

func TestAuthenticate_JWT(t *testing.T) {
	t.Parallel()
	manager := newTestManager(t, time.Hour)
	mw := NewMiddleware(AuthModeJWT, manager, "viewer")
	token, err := manager.GenerateToken("u-99", "carol", "editor")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK, "u-99"},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK, "u-99"},
		{"query parameter", "", "?access_token=" + token, http.StatusOK, "u-99"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.Authenticate(echoSubject).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAuthenticate_MissingChallengeAndMetric(t *testing.T) {
	manager := newTestManager(t, time.Hour)
	mw := NewMiddleware(AuthModeJWT, manager, "")
	before := testutil.ToFloat64(metrics.AuthFailures.WithLabelValues("missing"))

	rec := httptest.NewRecorder()
	mw.Authenticate(echoSubject).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
	if got := testutil.ToFloat64(metrics.AuthFailures.WithLabelValues("missing")); got != before+1 {
		t.Errorf("auth_failures_total{missing} = %v, want %v", got, before+1)
	}
}

func TestAuthenticate_CustomErrorWriter(t *testing.T) {
	t.Parallel()
	mw := NewMiddleware(AuthModeJWT, newTestManager(t, time.Hour), "")
	var gotStatus int
	mw.SetErrorWriter(func(w http.ResponseWriter, _ *http.Request, status int, message string) {
		gotStatus = status
		w.WriteHeader(status)
		_, _ = w.Write([]byte("custom:" + message))
	})

	rec := httptest.NewRecorder()
	mw.Authenticate(echoSubject).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if gotStatus != http.StatusUnauthorized || rec.Body.String() != "custom:authentication required" {
		t.Errorf("status %d body %q", gotStatus, rec.Body.String())
	}
}

func TestUserID(t *testing.T) {
	t.Parallel()
	if got := UserID(context.Background()); got != "" {
		t.Errorf("UserID(empty) = %q", got)
	}
	ctx := WithAuthSubject(context.Background(), &AuthSubject{ID: "u-1"})
	if got := UserID(ctx); got != "u-1" {
		t.Errorf("UserID() = %q, want u-1", got)
	}
}

func TestAuthSubject_IsExpired(t *testing.T) {
	t.Parallel()
	s := &AuthSubject{}
	if s.IsExpired() {
		t.Error("subject without expiry reported expired")
	}
	s.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if !s.IsExpired() {
		t.Error("past expiry not reported")
	}
}
