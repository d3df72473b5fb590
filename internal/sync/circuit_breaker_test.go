// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/models"
)

var testPoints = docstore.Annotations("map.png", models.KindPoints)

func newTestBreaker(t *testing.T, name string) (*BreakerStore, *flakyStore) {
	t.Helper()
	mem := docstore.NewMemoryStore()
	flaky := &flakyStore{Store: mem}
	cfg := DefaultBreakerConfig()
	cfg.Name = name
	b := NewBreakerStore(flaky, cfg)
	t.Cleanup(func() { _ = b.Close() })
	return b, flaky
}

// TestBreakerStore_OpensAfterFailures verifies the circuit opens at a 60%
// failure rate over ten requests and then rejects calls.
func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	b, flaky := newTestBreaker(t, "test-opens")
	ctx := context.Background()

	if b.State() != "closed" {
		t.Fatalf("initial state = %s, want closed", b.State())
	}

	for i := 0; i < 10; i++ {
		flaky.failAll = i >= 3 // trips on the tenth request
		_, _ = b.Query(ctx, testPoints)
	}
	if b.State() != "open" {
		t.Fatalf("state after 7/10 failures = %s, want open", b.State())
	}

	flaky.failAll = false
	_, err := b.Query(ctx, testPoints)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Query() on open circuit error = %v, want ErrOpenState", err)
	}
}

// TestBreakerStore_StaysClosedBelowThreshold verifies fewer than the minimum
// number of requests never trips the circuit.
func TestBreakerStore_StaysClosedBelowThreshold(t *testing.T) {
	b, flaky := newTestBreaker(t, "test-below")
	flaky.failAll = true
	for i := 0; i < 9; i++ {
		_, _ = b.Query(context.Background(), testPoints)
	}
	if b.State() != "closed" {
		t.Errorf("state after 9 failures = %s, want closed", b.State())
	}
}

// TestBreakerStore_NotFoundIsNotAFailure verifies missing documents do not
// count toward tripping.
func TestBreakerStore_NotFoundIsNotAFailure(t *testing.T) {
	b, _ := newTestBreaker(t, "test-notfound")
	for i := 0; i < 20; i++ {
		_, err := b.Get(context.Background(), testPoints, "missing")
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
}

// TestBreakerStore_PassesThrough verifies results and subscriptions reach
// the wrapped store unchanged.
func TestBreakerStore_PassesThrough(t *testing.T) {
	b, _ := newTestBreaker(t, "test-pass")
	ctx := context.Background()

	id, err := b.Add(ctx, testPoints, docstore.Fields{"id": "A-01"})
	if err != nil || id == "" {
		t.Fatalf("Add() = %q, %v", id, err)
	}
	if err := b.Update(ctx, testPoints, id, docstore.Fields{"x": 4}); err != nil {
		t.Fatal(err)
	}
	doc, err := b.Get(ctx, testPoints, id)
	if err != nil || doc.Fields["x"] != float64(4) {
		t.Fatalf("Get() = %+v, %v", doc, err)
	}
	if err := b.Set(ctx, docstore.Projects, "map.png", docstore.Fields{"imageKey": "map.png"}); err != nil {
		t.Fatal(err)
	}

	got := make(chan int, 8)
	sub, err := b.Subscribe(ctx, testPoints, func(docs []docstore.Document) error {
		got <- len(docs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	select {
	case n := <-got:
		if n != 1 {
			t.Errorf("initial snapshot has %d docs, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	if err := b.Delete(ctx, testPoints, id); err != nil {
		t.Fatal(err)
	}
	docs, err := b.Query(ctx, testPoints)
	if err != nil || len(docs) != 0 {
		t.Errorf("Query() after Delete = %v, %v", docs, err)
	}
}

func TestCastResult(t *testing.T) {
	if _, err := castResult[string](42, nil); err == nil {
		t.Error("castResult accepted wrong type")
	}
	if v, err := castResult[string]("ok", nil); err != nil || v != "ok" {
		t.Errorf("castResult = %q, %v", v, err)
	}
	if _, err := castResult[string](nil, errRemoteDown); !errors.Is(err, errRemoteDown) {
		t.Errorf("castResult dropped error: %v", err)
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		f     float64
		s     string
	}{
		{gobreaker.StateClosed, 0, "closed"},
		{gobreaker.StateHalfOpen, 1, "half-open"},
		{gobreaker.StateOpen, 2, "open"},
	}
	for _, tt := range tests {
		if got := stateToFloat(tt.state); got != tt.f {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.f)
		}
		if got := stateToString(tt.state); got != tt.s {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.s)
		}
	}
}
