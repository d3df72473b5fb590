// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateIDs(t *testing.T) {
	t.Parallel()

	if id := GenerateCorrelationID(); len(id) != 8 {
		t.Errorf("expected 8-character correlation ID, got %q", id)
	}
	if id := GenerateRequestID(); len(id) != 36 {
		t.Errorf("expected 36-character request ID, got %q", id)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("expected unique request IDs")
	}
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no ids")
	}

	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")

	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("correlation id = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q", got)
	}
	if got := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background())); got == "" {
		t.Error("expected generated correlation id")
	}
}

func TestCtx(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "corr0001")
	ctx = ContextWithRequestID(ctx, "req-42")

	Ctx(ctx).Info().Msg("handled")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"corr0001"`, `"request_id":"req-42"`, "handled"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	defer SetLogger(orig)

	SetLogger(NewTestLogger(&buf))
	l := WithComponent("docstore")
	l.Info().Msg("opened")

	if !strings.Contains(buf.String(), `"component":"docstore"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}
