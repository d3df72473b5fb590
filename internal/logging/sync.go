// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// SyncLogger logs remote synchronization outcomes with consistent fields.
// Background failures are only ever logged through it, never returned.
type SyncLogger struct {
	logger zerolog.Logger
}

// NewSyncLogger creates a SyncLogger on the global logger.
func NewSyncLogger() *SyncLogger {
	return &SyncLogger{logger: WithComponent("sync")}
}

// NewSyncLoggerWithLogger creates a SyncLogger on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSyncLoggerWithLogger(logger zerolog.Logger) *SyncLogger {
	return &SyncLogger{logger: logger.With().Str("component", "sync").Logger()}
}

// WithProject returns a SyncLogger that tags every line with project.
func (s *SyncLogger) WithProject(project string) *SyncLogger {
	return &SyncLogger{logger: s.logger.With().Str("project", project).Logger()}
}

func (s *SyncLogger) ctx(ctx context.Context) zerolog.Logger {
	logCtx := s.logger.With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	return logCtx.Logger()
}

// LogBackgroundFailure records a swallowed error from a best-effort
// operation such as a drag-triggered position update.
func (s *SyncLogger) LogBackgroundFailure(ctx context.Context, op, kind string, err error) {
	l := s.ctx(ctx)
	l.Warn().Err(err).Str("op", op).Str("kind", kind).Msg("background sync failed")
}

// LogCounterFailure records a failed denormalized counter update.
func (s *SyncLogger) LogCounterFailure(ctx context.Context, field string, delta int, err error) {
	l := s.ctx(ctx)
	l.Warn().Err(err).Str("field", field).Int("delta", delta).Msg("project counter update failed")
}

// LogListenerError records an error or panic from a subscription callback.
func (s *SyncLogger) LogListenerError(ctx context.Context, kind string, err error) {
	l := s.ctx(ctx)
	l.Error().Err(err).Str("kind", kind).Msg("subscription listener failed")
}

// LogDuplicate records an add that matched an existing remote document.
func (s *SyncLogger) LogDuplicate(ctx context.Context, kind, key, existingID string) {
	l := s.ctx(ctx)
	l.Info().Str("kind", kind).Str("key", key).Str("existing_id", existingID).Msg("duplicate add skipped")
}

// LogWrite records a successful remote write at debug level.
func (s *SyncLogger) LogWrite(ctx context.Context, op, kind, id string) {
	l := s.ctx(ctx)
	l.Debug().Str("op", op).Str("kind", kind).Str("id", id).Msg("remote write")
}
