// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/mapmark/internal/auth"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateFeed(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateClient(); err != nil {
		return err
	}

	if err := c.validateEditor(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	for name, d := range map[string]time.Duration{
		"HTTP_READ_TIMEOUT":     c.Server.ReadTimeout,
		"HTTP_WRITE_TIMEOUT":    c.Server.WriteTimeout,
		"HTTP_SHUTDOWN_TIMEOUT": c.Server.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendMemory:
		return nil
	case StoreBackendBadger:
	default:
		return fmt.Errorf("STORE_BACKEND must be badger or memory, got %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("BADGER_PATH is required when STORE_BACKEND=badger")
	}
	if c.Store.GCInterval < 0 {
		return fmt.Errorf("BADGER_GC_INTERVAL must not be negative, got %v", c.Store.GCInterval)
	}
	if c.Store.GCRatio <= 0 || c.Store.GCRatio >= 1 {
		return fmt.Errorf("BADGER_GC_RATIO must be between 0 and 1 (exclusive), got %v", c.Store.GCRatio)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if verr := validation.ValidateStruct(c.Feed); verr != nil {
		return fmt.Errorf("feed: %w", verr)
	}
	if c.Feed.Embedded && c.Feed.NATSURL != "" {
		return fmt.Errorf("NATS_EMBEDDED and NATS_URL are mutually exclusive")
	}
	if c.Feed.Embedded && (c.Feed.EmbeddedPort < 1 || c.Feed.EmbeddedPort > 65535) {
		return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535, got %d", c.Feed.EmbeddedPort)
	}
	if c.Feed.NATSURL != "" {
		u, err := url.Parse(c.Feed.NATSURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("NATS_URL is invalid: %q", c.Feed.NATSURL)
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	mode, err := auth.ParseAuthMode(c.Security.AuthMode)
	if err != nil {
		return fmt.Errorf("AUTH_MODE: %w", err)
	}

	switch mode {
	case auth.AuthModeJWT:
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	case auth.AuthModeNone:
		if strings.TrimSpace(c.Security.AnonymousRole) == "" {
			return fmt.Errorf("ANONYMOUS_ROLE is required when AUTH_MODE=none")
		}
	}

	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %v", c.Security.TokenTTL)
	}

	if err := c.validateCORS(mode); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
	}
	if len(secret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	if containsPlaceholder(secret) {
		return fmt.Errorf("JWT_SECRET looks like a placeholder; generate a random secret")
	}
	return nil
}

// validateCORS rejects wildcard origins in production when requests carry
// credentials.
func (c *Config) validateCORS(mode auth.AuthMode) error {
	if mode != auth.AuthModeNone && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled; " +
			"set specific origins or use ENVIRONMENT=development")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	return slices.Contains(c.Security.CORSOrigins, "*")
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > 100000 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second || c.Security.RateLimitWindow > time.Hour {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.BaseURL != "" {
		u, err := url.Parse(c.Client.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("MAPMARK_URL must be an http or https URL, got %q", c.Client.BaseURL)
		}
	}
	if c.Client.RequestsPerSecond < 0 {
		return fmt.Errorf("CLIENT_RPS must not be negative, got %v", c.Client.RequestsPerSecond)
	}
	if c.Client.Burst < 0 {
		return fmt.Errorf("CLIENT_BURST must not be negative, got %d", c.Client.Burst)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("CLIENT_TIMEOUT must not be negative, got %v", c.Client.Timeout)
	}
	return nil
}

func (c *Config) validateEditor() error {
	for name, r := range map[string]float64{
		"HIT_RADIUS_POINT":    c.Editor.PointThreshold,
		"HIT_RADIUS_SPOT":     c.Editor.SpotThreshold,
		"HIT_RADIUS_WAYPOINT": c.Editor.WaypointThreshold,
		"HIT_RADIUS_VERTEX":   c.Editor.VertexThreshold,
	} {
		if r <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, r)
		}
	}
	if c.Editor.PositionTolerance < 0 {
		return fmt.Errorf("POSITION_TOLERANCE must not be negative, got %d", c.Editor.PositionTolerance)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns are values people forget to replace.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
