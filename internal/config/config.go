// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/mapmark/internal/authz"
	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/feed"
	"github.com/tomtom215/mapmark/internal/hittest"
	"github.com/tomtom215/mapmark/internal/logging"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Categories:
//
//  1. Server side:
//     - Server: HTTP listener and timeouts
//     - Store: document store backend (BadgerDB or memory)
//     - Feed: change feed transport (in-process, NATS, embedded NATS)
//     - Security: authentication, authorization, CORS and rate limits
//
//  2. Editor side:
//     - Client: remote document store the editor syncs with
//     - Editor: hit-test radii and delete-by-position tolerance
//
//  3. Observability:
//     - Logging: log level and output format
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Feed     feed.Config    `koanf:"feed"`
	Security SecurityConfig `koanf:"security"`
	Client   ClientConfig   `koanf:"client"`
	Editor   EditorConfig   `koanf:"editor"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the TCP port. Default: 8640
	Port int `koanf:"port"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes bounds request bodies on document routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Environment is development or production. Production tightens the
	// CORS checks.
	Environment string `koanf:"environment"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Store backends.
const (
	StoreBackendBadger = "badger"
	StoreBackendMemory = "memory"
)

// StoreConfig selects and tunes the server's document store.
type StoreConfig struct {
	// Backend is badger or memory. Default: badger
	Backend string `koanf:"backend"`

	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	SyncWrites  bool `koanf:"sync_writes"`
	Compression bool `koanf:"compression"`

	// GCInterval is the time between value log GC runs. Zero disables GC.
	GCInterval time.Duration `koanf:"gc_interval"`
	GCRatio    float64       `koanf:"gc_ratio"`

	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// Badger converts the section into a docstore.BadgerConfig.
func (s StoreConfig) Badger() docstore.BadgerConfig {
	cfg := docstore.DefaultBadgerConfig(s.Path)
	cfg.SyncWrites = s.SyncWrites
	cfg.Compression = s.Compression
	cfg.GCInterval = s.GCInterval
	if s.GCRatio > 0 {
		cfg.GCRatio = s.GCRatio
	}
	if s.CloseTimeout > 0 {
		cfg.CloseTimeout = s.CloseTimeout
	}
	return cfg
}

// SecurityConfig holds authentication, authorization and abuse limits.
type SecurityConfig struct {
	// AuthMode is none or jwt. Default: none
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs bearer tokens. Required with auth_mode jwt.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of tokens issued by the token command.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// AnonymousRole is the Casbin role of requests in auth_mode none.
	AnonymousRole string `koanf:"anonymous_role"`

	// PolicyPath loads Casbin policy from a file instead of the built-in
	// viewer/editor policy.
	PolicyPath           string        `koanf:"policy_path"`
	PolicyReloadInterval time.Duration `koanf:"policy_reload_interval"`
	AuthzCacheTTL        time.Duration `koanf:"authz_cache_ttl"`

	CORSOrigins []string `koanf:"cors_origins"`

	// WebSocketOrigins restricts WebSocket upgrades. Empty allows any origin.
	WebSocketOrigins []string `koanf:"websocket_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Enforcer converts the authorization settings into an authz.EnforcerConfig.
func (s SecurityConfig) Enforcer() authz.EnforcerConfig {
	cfg := authz.DefaultEnforcerConfig()
	cfg.PolicyPath = s.PolicyPath
	if s.PolicyReloadInterval > 0 {
		cfg.ReloadInterval = s.PolicyReloadInterval
	}
	if s.AuthzCacheTTL > 0 {
		cfg.CacheTTL = s.AuthzCacheTTL
	}
	return cfg
}

// ClientConfig points an editor at a Mapmark server.
type ClientConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8640.
	BaseURL string `koanf:"base_url"`

	// Token is the bearer token sent with every request.
	Token string `koanf:"token"`

	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	Timeout           time.Duration `koanf:"timeout"`

	// Breaker wraps the client in a circuit breaker.
	Breaker bool `koanf:"breaker"`
}

// Docstore converts the section into a docstore.ClientConfig.
func (c ClientConfig) Docstore() docstore.ClientConfig {
	return docstore.ClientConfig{
		BaseURL:           c.BaseURL,
		Token:             c.Token,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Timeout:           c.Timeout,
	}
}

// EditorConfig tunes hit-testing and position lookups. Radii are canvas
// pixels; the tolerance is image pixels.
type EditorConfig struct {
	PointThreshold    float64 `koanf:"point_threshold"`
	SpotThreshold     float64 `koanf:"spot_threshold"`
	WaypointThreshold float64 `koanf:"waypoint_threshold"`
	VertexThreshold   float64 `koanf:"vertex_threshold"`
	PositionTolerance int     `koanf:"position_tolerance"`
}

// Thresholds converts the radii into hittest.Thresholds.
func (e EditorConfig) Thresholds() hittest.Thresholds {
	return hittest.Thresholds{
		Point:    e.PointThreshold,
		Spot:     e.SpotThreshold,
		Waypoint: e.WaypointThreshold,
		Vertex:   e.VertexThreshold,
	}
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Logging converts the section into a logging.Config.
func (l LoggingConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	if l.Format != "" {
		cfg.Format = l.Format
	}
	cfg.Caller = l.Caller
	return cfg
}
