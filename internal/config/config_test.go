// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points CONFIG_PATH at a missing file and runs from an empty
// directory so no config file on the machine is picked up.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	saved := DefaultConfigPaths
	DefaultConfigPaths = []string{"config.yaml"}
	t.Cleanup(func() { DefaultConfigPaths = saved })
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Server.Port != 8640 {
		t.Errorf("Server.Port = %d, want 8640", cfg.Server.Port)
	}
	if cfg.Store.Backend != StoreBackendBadger {
		t.Errorf("Store.Backend = %q, want badger", cfg.Store.Backend)
	}
	if cfg.Security.AuthMode != "none" || cfg.Security.AnonymousRole != "editor" {
		t.Errorf("Security = %+v", cfg.Security)
	}
	if cfg.Feed.Topic != "mapmark.changes" {
		t.Errorf("Feed.Topic = %q", cfg.Feed.Topic)
	}

	th := cfg.Editor.Thresholds()
	if th.Point != 8 || th.Spot != 10 || th.Waypoint != 10 || th.Vertex != 10 {
		t.Errorf("Thresholds = %+v, want 8/10/10/10", th)
	}
	if cfg.Editor.PositionTolerance != 1 {
		t.Errorf("PositionTolerance = %d, want 1", cfg.Editor.PositionTolerance)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Feed.ReconnectWait != 2*time.Second {
		t.Errorf("Feed.ReconnectWait = %v, want 2s", cfg.Feed.ReconnectWait)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BADGER_PATH", "/tmp/mapmark-docs")
	t.Setenv("NATS_URL", "nats://nats.internal:4222")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", strings.Repeat("x", 40))
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("HIT_RADIUS_POINT", "12")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Store.Path != "/tmp/mapmark-docs" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Feed.NATSURL != "nats://nats.internal:4222" || cfg.Feed.Transport() != "nats" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Security.AuthMode != "jwt" {
		t.Errorf("AuthMode = %q", cfg.Security.AuthMode)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != want[0] || cfg.Security.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	if cfg.Security.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v", cfg.Security.RateLimitWindow)
	}
	if cfg.Editor.PointThreshold != 12 {
		t.Errorf("PointThreshold = %v", cfg.Editor.PointThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "mapmark.yaml")
	yaml := `
server:
  port: 7000
  environment: production
store:
  backend: memory
feed:
  embedded: true
  embedded_port: 4333
security:
  cors_origins:
    - https://maps.example.com
editor:
  spot_threshold: 14
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if !cfg.IsProduction() {
		t.Error("environment from file not applied")
	}
	if cfg.Store.Backend != StoreBackendMemory {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if !cfg.Feed.Embedded || cfg.Feed.EmbeddedPort != 4333 {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "https://maps.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Editor.SpotThreshold != 14 || cfg.Editor.PointThreshold != 8 {
		t.Errorf("Editor = %+v", cfg.Editor)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile() with missing file should fail")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AUTH_MODE", "jwt")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("Load() error = %v, want JWT_SECRET error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "HTTP_READ_TIMEOUT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "STORE_BACKEND"},
		{"badger without path", func(c *Config) { c.Store.Path = " " }, "BADGER_PATH"},
		{"memory without path", func(c *Config) { c.Store.Backend = StoreBackendMemory; c.Store.Path = "" }, ""},
		{"gc ratio", func(c *Config) { c.Store.GCRatio = 1 }, "BADGER_GC_RATIO"},
		{"feed topic", func(c *Config) { c.Feed.Topic = "" }, "feed"},
		{"embedded and url", func(c *Config) { c.Feed.Embedded = true; c.Feed.NATSURL = "nats://x:4222" }, "mutually exclusive"},
		{"bad nats url", func(c *Config) { c.Feed.NATSURL = "::" }, "NATS_URL"},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "oidc" }, "AUTH_MODE"},
		{"jwt short secret", func(c *Config) { c.Security.AuthMode = "jwt"; c.Security.JWTSecret = "short" }, "at least"},
		{"jwt placeholder", func(c *Config) {
			c.Security.AuthMode = "jwt"
			c.Security.JWTSecret = "REPLACE_WITH_A_REAL_SECRET_OF_SOME_LENGTH"
		}, "placeholder"},
		{"jwt ok", func(c *Config) { c.Security.AuthMode = "jwt"; c.Security.JWTSecret = strings.Repeat("k", 32) }, ""},
		{"anonymous role", func(c *Config) { c.Security.AnonymousRole = "" }, "ANONYMOUS_ROLE"},
		{"wildcard cors production jwt", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.AuthMode = "jwt"
			c.Security.JWTSecret = strings.Repeat("k", 32)
			c.Security.CORSOrigins = []string{"*"}
		}, "wildcard"},
		{"wildcard cors development", func(c *Config) { c.Security.CORSOrigins = []string{"*"} }, ""},
		{"rate limit requests", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit disabled", func(c *Config) { c.Security.RateLimitReqs = 0; c.Security.RateLimitDisabled = true }, ""},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = 2 * time.Hour }, "RATE_LIMIT_WINDOW"},
		{"client url", func(c *Config) { c.Client.BaseURL = "ftp://host" }, "MAPMARK_URL"},
		{"client rps", func(c *Config) { c.Client.RequestsPerSecond = -1 }, "CLIENT_RPS"},
		{"hit radius", func(c *Config) { c.Editor.VertexThreshold = 0 }, "HIT_RADIUS_VERTEX"},
		{"tolerance", func(c *Config) { c.Editor.PositionTolerance = -1 }, "POSITION_TOLERANCE"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Store.Path = "/srv/docs"
	cfg.Store.SyncWrites = false
	cfg.Client.BaseURL = "https://maps.example.com"
	cfg.Client.Token = "tok"
	cfg.Security.PolicyPath = "/etc/mapmark/policy.csv"
	cfg.Logging.Format = "console"

	badger := cfg.Store.Badger()
	if badger.Path != "/srv/docs" || badger.SyncWrites || badger.GCRatio != 0.5 {
		t.Errorf("Badger() = %+v", badger)
	}

	client := cfg.Client.Docstore()
	if client.BaseURL != "https://maps.example.com" || client.Token != "tok" || client.Burst != 10 {
		t.Errorf("Docstore() = %+v", client)
	}

	enforcer := cfg.Security.Enforcer()
	if enforcer.PolicyPath != "/etc/mapmark/policy.csv" || enforcer.CacheTTL != time.Minute {
		t.Errorf("Enforcer() = %+v", enforcer)
	}

	logCfg := cfg.Logging.Logging()
	if logCfg.Format != "console" || logCfg.Level != "info" || !logCfg.Timestamp {
		t.Errorf("Logging() = %+v", logCfg)
	}

	if cfg.Server.Addr() != "0.0.0.0:8640" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"HTTP_PORT":     "server.port",
		"http_port":     "server.port",
		"NATS_EMBEDDED": "feed.embedded",
		"MAPMARK_TOKEN": "client.token",
		"PATH":          "",
		"HOME":          "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
