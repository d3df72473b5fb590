// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package logging provides the zerolog-based logging used across Mapmark.
//
// A global logger is configured once at startup:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//
// Request-scoped code logs through Ctx so correlation and request ids are
// attached automatically:
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("query failed")
//
// Adapters route third-party loggers into the same output:
//   - SlogHandler for slog consumers (sutureslog)
//   - WatermillAdapter for the change feed
//
// SyncLogger carries the field conventions for remote synchronization. Every
// swallowed background failure is logged through it.
//
// Always terminate chains with Msg or Send; an unterminated event is dropped.
package logging
