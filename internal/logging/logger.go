// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger.
type Config struct {
	// Level is trace, debug, info, warn, error, fatal or disabled. Unknown
	// names fall back to info.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to each entry.
	Caller bool

	// Timestamp adds a "time" field in RFC 3339.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig is JSON at info with timestamps on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // packages log before main calls Init
func init() {
	Init(DefaultConfig())
}

// Init rebuilds the global logger from cfg. Safe to call again, e.g. after
// configuration has been loaded.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	// Levels are set per logger; the global level never filters.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	global.Store(&l)
}

// levelAliases covers names zerolog.ParseLevel does not accept.
var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
}

func lookupLevel(name string) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if lvl, ok := levelAliases[name]; ok {
		return lvl, true
	}
	if name == "" || name == "panic" {
		return zerolog.InfoLevel, false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

func parseLevel(name string) zerolog.Level {
	lvl, _ := lookupLevel(name)
	return lvl
}

// ValidLevel reports whether name is a level Init understands.
func ValidLevel(name string) bool {
	_, ok := lookupLevel(name)
	return ok
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger swaps the global logger. Tests use it to capture output.
//
//nolint:gocritic // zerolog.Logger is passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// With starts a child logger context from the global logger.
func With() zerolog.Context { return global.Load().With() }

// Debug starts a debug entry.
func Debug() *zerolog.Event { return global.Load().Debug() }

// Info starts an info entry.
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warn entry.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error entry.
func Error() *zerolog.Event { return global.Load().Error() }

// Fatal starts a fatal entry; the process exits after it is written.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// Err starts an error entry with err attached.
func Err(err error) *zerolog.Event { return global.Load().Err(err) }

// NewTestLogger is a timestamped JSON logger writing to w.
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
