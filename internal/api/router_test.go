// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/authz"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/websocket"
)

// runHub starts a hub that stops when the test ends.
func runHub(t *testing.T) *websocket.Hub {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// newTestServer serves a router over a fresh memory store. modify may
// adjust deps before the router is built.
func newTestServer(t *testing.T, modify func(*Deps)) (*httptest.Server, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	deps := Deps{
		Store:      store,
		Hub:        runHub(t),
		Middleware: cfg,
		Checks:     []HealthCheck{StoreCheck(store)},
	}
	if modify != nil {
		modify(&deps)
	}
	router, err := NewRouter(deps)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)
	return server, store
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func doRequest(t *testing.T, method, url, token string, body string) (int, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out testResponse
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, url, raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestNewRouter_RequiresStoreAndHub(t *testing.T) {
	t.Parallel()
	if _, err := NewRouter(Deps{Hub: websocket.NewHub()}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewRouter(Deps{Store: docstore.NewMemoryStore()}); err == nil {
		t.Error("expected error without hub")
	}
}

func TestRouter_ProjectLifecycle(t *testing.T) {
	server, _ := newTestServer(t, nil)
	base := server.URL + "/api/v1/projects"

	status, resp := doRequest(t, http.MethodPut, base+"/harbor.png", "", `{"imageName":"harbor.png","n":0}`)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("PUT status = %d, success = %v", status, resp.Success)
	}

	status, resp = doRequest(t, http.MethodPatch, base+"/harbor.png", "", `{"n":{"$increment":2}}`)
	if status != http.StatusOK {
		t.Fatalf("PATCH status = %d, error = %+v", status, resp.Error)
	}

	status, resp = doRequest(t, http.MethodGet, base+"/harbor.png", "", "")
	if status != http.StatusOK {
		t.Fatalf("GET status = %d", status)
	}
	var doc docstore.Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID != "harbor.png" {
		t.Errorf("id = %q", doc.ID)
	}
	if n, _ := doc.Fields["n"].(float64); n != 2 {
		t.Errorf("n = %v, want 2", doc.Fields["n"])
	}

	status, resp = doRequest(t, http.MethodGet, base+"?imageName=harbor.png", "", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if resp.Meta == nil || resp.Meta.Count == nil || *resp.Meta.Count != 1 {
		t.Errorf("list meta = %+v, want count 1", resp.Meta)
	}

	status, _ = doRequest(t, http.MethodDelete, base+"/harbor.png", "", "")
	if status != http.StatusOK {
		t.Fatalf("DELETE status = %d", status)
	}
	status, resp = doRequest(t, http.MethodGet, base+"/harbor.png", "", "")
	if status != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d", status)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestRouter_AnnotationLifecycle(t *testing.T) {
	server, store := newTestServer(t, nil)
	base := server.URL + "/api/v1/projects/harbor.png/points"

	status, resp := doRequest(t, http.MethodPost, base, "", `{"x":10,"y":20,"label":"dock"}`)
	if status != http.StatusCreated {
		t.Fatalf("POST status = %d, error = %+v", status, resp.Error)
	}
	var added docstore.AddResponse
	if err := json.Unmarshal(resp.Data, &added); err != nil {
		t.Fatal(err)
	}
	if added.ID == "" {
		t.Fatal("POST returned no id")
	}

	if _, err := doRequestStatus(t, http.MethodPost, base, `{"x":30,"y":40,"label":"pier"}`); err != nil {
		t.Fatal(err)
	}

	status, resp = doRequest(t, http.MethodGet, base+"?label=dock", "", "")
	if status != http.StatusOK {
		t.Fatalf("query status = %d", status)
	}
	var docs []docstore.Document
	if err := json.Unmarshal(resp.Data, &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != added.ID {
		t.Fatalf("query = %+v, want only %s", docs, added.ID)
	}

	// Numeric filters arrive as strings.
	status, resp = doRequest(t, http.MethodGet, base+"?x=30", "", "")
	if status != http.StatusOK {
		t.Fatalf("numeric query status = %d", status)
	}
	if err := json.Unmarshal(resp.Data, &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("numeric query returned %d docs, want 1", len(docs))
	}

	status, _ = doRequest(t, http.MethodPut, base+"/"+added.ID, "", `{"label":"main dock"}`)
	if status != http.StatusOK {
		t.Fatalf("PUT status = %d", status)
	}
	doc, err := store.Get(context.Background(), docstore.Annotations("harbor.png", "points"), added.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Fields["label"] != "main dock" || doc.Fields["x"] == nil {
		t.Errorf("fields after merge = %v", doc.Fields)
	}

	status, _ = doRequest(t, http.MethodDelete, base+"/"+added.ID, "", "")
	if status != http.StatusOK {
		t.Fatalf("DELETE status = %d", status)
	}
	// Deleting twice still succeeds.
	status, _ = doRequest(t, http.MethodDelete, base+"/"+added.ID, "", "")
	if status != http.StatusOK {
		t.Fatalf("second DELETE status = %d", status)
	}
}

// doRequestStatus fails unless the request succeeds with 2xx.
func doRequestStatus(t *testing.T, method, url, body string) (int, error) {
	t.Helper()
	status, resp := doRequest(t, method, url, "", body)
	if status < 200 || status > 299 {
		return status, errors.New("unexpected status: " + http.StatusText(status) + " " + errorCode(resp))
	}
	return status, nil
}

func errorCode(resp testResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func TestRouter_Errors(t *testing.T) {
	server, _ := newTestServer(t, func(d *Deps) { d.MaxBodyBytes = 64 })
	base := server.URL + "/api/v1/projects"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown kind", http.MethodGet, "/harbor.png/ships", "", http.StatusBadRequest, ErrCodeBadRequest},
		{"missing document", http.MethodGet, "/harbor.png/points/nope", "", http.StatusNotFound, ErrCodeNotFound},
		{"update missing", http.MethodPatch, "/harbor.png/points/nope", `{"x":1}`, http.StatusNotFound, ErrCodeNotFound},
		{"not an object", http.MethodPut, "/harbor.png", `[1,2,3]`, http.StatusBadRequest, ErrCodeBadRequest},
		{"malformed json", http.MethodPost, "/harbor.png/points", `{"x":`, http.StatusBadRequest, ErrCodeBadRequest},
		{"body too large", http.MethodPut, "/harbor.png", `{"label":"` + strings.Repeat("a", 128) + `"}`, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge},
		{"method not allowed", http.MethodPost, "/harbor.png", `{}`, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := doRequest(t, tt.method, base+tt.path, "", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Success {
				t.Error("success = true on error")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestRouter_UnknownEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	status, resp := doRequest(t, http.MethodGet, server.URL+"/api/v2/nothing", "", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRouter_EscapedProjectKey(t *testing.T) {
	server, store := newTestServer(t, nil)
	status, _ := doRequest(t, http.MethodPut, server.URL+"/api/v1/projects/old%20town.jpg", "", `{"imageName":"old town.jpg"}`)
	if status != http.StatusOK {
		t.Fatalf("PUT status = %d", status)
	}
	if _, err := store.Get(context.Background(), docstore.Projects, "old town.jpg"); err != nil {
		t.Fatalf("stored under escaped key: %v", err)
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	server, _ := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/projects", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	var body testResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Meta == nil || body.Meta.RequestID != "req-123" {
		t.Errorf("meta = %+v", body.Meta)
	}
	if resp.Header.Get("Cache-Control") == "" {
		t.Error("security headers missing")
	}
}

func newJWTServer(t *testing.T) (*httptest.Server, *auth.JWTManager) {
	t.Helper()
	jwtManager, err := auth.NewJWTManager(strings.Repeat("k", auth.MinSecretLength), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := authz.NewEnforcer(context.Background(), authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enforcer.Close)

	server, _ := newTestServer(t, func(d *Deps) {
		d.Authn = auth.NewMiddleware(auth.AuthModeJWT, jwtManager, "")
		d.Authz = authz.NewMiddleware(enforcer)
	})
	return server, jwtManager
}

func TestRouter_Authorization(t *testing.T) {
	server, jwtManager := newJWTServer(t)
	base := server.URL + "/api/v1/projects/harbor.png"

	viewer, err := jwtManager.GenerateToken("u-viewer", "vera", "viewer")
	if err != nil {
		t.Fatal(err)
	}
	editor, err := jwtManager.GenerateToken("u-editor", "eddie", "editor")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		method     string
		token      string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"no token", http.MethodGet, "", "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"bad token", http.MethodGet, "not-a-jwt", "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"viewer write", http.MethodPut, viewer, `{"n":1}`, http.StatusForbidden, ErrCodeForbidden},
		{"editor write", http.MethodPut, editor, `{"n":1}`, http.StatusOK, ""},
		{"viewer read", http.MethodGet, viewer, "", http.StatusOK, ""},
		{"viewer delete", http.MethodDelete, viewer, "", http.StatusForbidden, ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := doRequest(t, tt.method, base, tt.token, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (error %+v)", status, tt.wantStatus, resp.Error)
			}
			if tt.wantCode != "" && (resp.Error == nil || resp.Error.Code != tt.wantCode) {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestRouter_HealthBypassesAuth(t *testing.T) {
	server, _ := newJWTServer(t)
	status, resp := doRequest(t, http.MethodGet, server.URL+"/api/v1/health/live", "", "")
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("live status = %d", status)
	}
	var data map[string]any
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["alive"] != true {
		t.Errorf("alive = %v", data["alive"])
	}
}

func TestRouter_HealthReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		server, _ := newTestServer(t, nil)
		status, resp := doRequest(t, http.MethodGet, server.URL+"/api/v1/health/ready", "", "")
		if status != http.StatusOK || !resp.Success {
			t.Fatalf("status = %d, success = %v", status, resp.Success)
		}
	})

	t.Run("failing check", func(t *testing.T) {
		server, _ := newTestServer(t, func(d *Deps) {
			d.Checks = append(d.Checks, HealthCheck{
				Name:  "feed",
				Check: func(context.Context) error { return errors.New("nats down") },
			})
		})
		status, resp := doRequest(t, http.MethodGet, server.URL+"/api/v1/health/ready", "", "")
		if status != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", status)
		}
		var data struct {
			Ready  bool              `json:"ready"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatal(err)
		}
		if data.Ready || data.Checks["feed"] != "nats down" || data.Checks["store"] != "ok" {
			t.Errorf("data = %+v", data)
		}
	})

	t.Run("closed store", func(t *testing.T) {
		server, store := newTestServer(t, nil)
		_ = store.Close()
		status, _ := doRequest(t, http.MethodGet, server.URL+"/api/v1/health/ready", "", "")
		if status != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", status)
		}
	})
}

func TestRouter_ClosedStore(t *testing.T) {
	server, store := newTestServer(t, nil)
	_ = store.Close()
	status, resp := doRequest(t, http.MethodGet, server.URL+"/api/v1/projects/harbor.png", "", "")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
