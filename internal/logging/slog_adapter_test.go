// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewSlogHandlerWithLogger(zerolog.New(nil).Level(zerolog.WarnLevel))

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled on a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled on a warn logger")
	}
}

func TestSlogHandler_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, `"level":"debug"`},
		{slog.LevelInfo, `"level":"info"`},
		{slog.LevelWarn, `"level":"warn"`},
		{slog.LevelError, `"level":"error"`},
		{slog.Level(100), `"level":"info"`},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		h := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

		record := slog.NewRecord(time.Now(), tt.level, "supervisor event", 0)
		record.AddAttrs(slog.String("service", "http"), slog.Int("restarts", 2))
		if err := h.Handle(context.Background(), record); err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		for _, want := range []string{tt.want, `"service":"http"`, `"restarts":2`} {
			if !strings.Contains(out, want) {
				t.Errorf("level %v: output missing %s: %s", tt.level, want, out)
			}
		}
	}
}

func TestSlogHandler_WithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("tree", "root")}).WithGroup("outer").WithGroup("inner"))
	logger.Info("test", "key", "value", slog.Group("g", slog.Bool("ok", true)))

	out := buf.String()
	for _, want := range []string{`"outer.inner.tree":"root"`, `"outer.inner.key":"value"`, `"outer.inner.g.ok":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}

	if h.WithGroup("") != h {
		t.Error("empty group should return the same handler")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
