// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/mapmark/internal/api"
	"github.com/tomtom215/mapmark/internal/feed"
	"github.com/tomtom215/mapmark/internal/hittest"
	"github.com/tomtom215/mapmark/internal/sync"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mapmark/config.yaml",
	"/etc/mapmark/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	thresholds := hittest.DefaultThresholds()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8640,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    api.DefaultMaxBodyBytes,
			Environment:     "development",
		},
		Store: StoreConfig{
			Backend:      StoreBackendBadger,
			Path:         "/data/mapmark",
			SyncWrites:   true,
			Compression:  true,
			GCInterval:   10 * time.Minute,
			GCRatio:      0.5,
			CloseTimeout: 30 * time.Second,
		},
		Feed: feed.DefaultConfig(),
		Security: SecurityConfig{
			AuthMode:             "none",
			TokenTTL:             24 * time.Hour,
			AnonymousRole:        "editor",
			PolicyReloadInterval: 30 * time.Second,
			AuthzCacheTTL:        time.Minute,
			CORSOrigins:          []string{},
			WebSocketOrigins:     []string{},
			RateLimitReqs:        600,
			RateLimitWindow:      time.Minute,
		},
		Client: ClientConfig{
			BaseURL:           "http://localhost:8640",
			RequestsPerSecond: 20,
			Burst:             10,
			Timeout:           15 * time.Second,
			Breaker:           true,
		},
		Editor: EditorConfig{
			PointThreshold:    thresholds.Point,
			SpotThreshold:     thresholds.Spot,
			WaypointThreshold: thresholds.Waypoint,
			VertexThreshold:   thresholds.Vertex,
			PositionTolerance: sync.DefaultPositionTolerance,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port
	// NATS_URL -> feed.nats_url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.websocket_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names, lowercased, to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"environment":           "server.environment",

	// Store
	"store_backend":       "store.backend",
	"badger_path":         "store.path",
	"store_path":          "store.path",
	"badger_sync_writes":  "store.sync_writes",
	"badger_compression":  "store.compression",
	"badger_gc_interval":  "store.gc_interval",
	"badger_gc_ratio":     "store.gc_ratio",
	"store_close_timeout": "store.close_timeout",

	// Feed
	"feed_topic":          "feed.topic",
	"feed_buffer":         "feed.buffer",
	"nats_url":            "feed.nats_url",
	"nats_embedded":       "feed.embedded",
	"nats_embedded_host":  "feed.embedded_host",
	"nats_embedded_port":  "feed.embedded_port",
	"nats_max_reconnects": "feed.max_reconnects",
	"nats_reconnect_wait": "feed.reconnect_wait",
	"feed_close_timeout":  "feed.close_timeout",

	// Security
	"auth_mode":              "security.auth_mode",
	"jwt_secret":             "security.jwt_secret",
	"token_ttl":              "security.token_ttl",
	"anonymous_role":         "security.anonymous_role",
	"casbin_policy_path":     "security.policy_path",
	"casbin_reload_interval": "security.policy_reload_interval",
	"casbin_cache_ttl":       "security.authz_cache_ttl",
	"cors_origins":           "security.cors_origins",
	"websocket_origins":      "security.websocket_origins",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",

	// Client
	"mapmark_url":            "client.base_url",
	"mapmark_token":          "client.token",
	"client_rps":             "client.requests_per_second",
	"client_burst":           "client.burst",
	"client_timeout":         "client.timeout",
	"client_breaker_enabled": "client.breaker",

	// Editor
	"hit_radius_point":    "editor.point_threshold",
	"hit_radius_spot":     "editor.spot_threshold",
	"hit_radius_waypoint": "editor.waypoint_threshold",
	"hit_radius_vertex":   "editor.vertex_threshold",
	"position_tolerance":  "editor.position_tolerance",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - BADGER_PATH -> store.path
//   - NATS_URL -> feed.nats_url
//   - JWT_SECRET -> security.jwt_secret
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
