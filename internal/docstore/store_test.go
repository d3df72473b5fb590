// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/mapmark/internal/models"
)

// Test helpers

type storeFactory func(t *testing.T) Store

func memoryFactory(t *testing.T) Store {
	t.Helper()
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func badgerFactory(t *testing.T) Store {
	t.Helper()
	cfg := DefaultBadgerConfig(filepath.Join(t.TempDir(), "docs"))
	cfg.SyncWrites = false                  // Faster tests without fsync
	cfg.MemTableSize = 16 * 1024 * 1024     // BadgerDB minimum for tests
	cfg.ValueLogFileSize = 16 * 1024 * 1024 // 16MB for tests
	s, err := OpenBadger(cfg)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var factories = map[string]storeFactory{
	"memory": memoryFactory,
	"badger": badgerFactory,
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fn(t, factory(t))
		})
	}
}

// snapshots collects listener deliveries into a channel.
func snapshots(t *testing.T) (Listener, <-chan []Document) {
	t.Helper()
	ch := make(chan []Document, 64)
	return func(docs []Document) error {
		ch <- docs
		return nil
	}, ch
}

// waitFor reads deliveries until ok accepts one. Deliveries coalesce, so
// tests wait for a state rather than counting calls.
func waitFor(t *testing.T, ch <-chan []Document, ok func([]Document) bool) []Document {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case docs := <-ch:
			if ok(docs) {
				return docs
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func hasLen(n int) func([]Document) bool {
	return func(docs []Document) bool { return len(docs) == n }
}

var points = Annotations("map.png", models.KindPoints)

func TestStore_AddGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.Add(ctx, points, Fields{"id": "A-01", "x": 10, "y": 20})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if id == "" {
			t.Fatal("Add() returned empty id")
		}

		doc, err := s.Get(ctx, points, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if doc.ID != id {
			t.Errorf("ID = %q, want %q", doc.ID, id)
		}
		if doc.Fields["id"] != "A-01" {
			t.Errorf("id field = %v, want A-01", doc.Fields["id"])
		}
		if doc.Fields["x"] != float64(10) {
			t.Errorf("x field = %#v, want float64(10)", doc.Fields["x"])
		}
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), points, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_QueryFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i, id := range []string{"A-01", "B-02", "A-01"} {
			if _, err := s.Add(ctx, points, Fields{"id": id, "x": i * 10, "isMarker": i == 1}); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
		}

		tests := []struct {
			name    string
			filters []Filter
			want    int
		}{
			{"no filter", nil, 3},
			{"string match", []Filter{Eq("id", "A-01")}, 2},
			{"int against stored float", []Filter{Eq("x", 10)}, 1},
			{"numeric string", []Filter{Eq("x", "20")}, 1},
			{"bool", []Filter{Eq("isMarker", true)}, 1},
			{"bool string", []Filter{Eq("isMarker", "false")}, 2},
			{"conjunction", []Filter{Eq("id", "A-01"), Eq("x", 0)}, 1},
			{"typed string", []Filter{Eq("id", models.Kind("B-02"))}, 1},
			{"missing field", []Filter{Eq("name", "x")}, 0},
			{"no match", []Filter{Eq("id", "Z-99")}, 0},
		}
		for _, tt := range tests {
			docs, err := s.Query(ctx, points, tt.filters...)
			if err != nil {
				t.Fatalf("%s: Query() error = %v", tt.name, err)
			}
			if len(docs) != tt.want {
				t.Errorf("%s: got %d docs, want %d", tt.name, len(docs), tt.want)
			}
		}
	})
}

func TestStore_QueryOrderedByCreation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var ids []string
		for i := 0; i < 5; i++ {
			id, err := s.Add(ctx, points, Fields{"n": i})
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			ids = append(ids, id)
		}
		docs, err := s.Query(ctx, points)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		for i, d := range docs {
			if d.ID != ids[i] {
				t.Fatalf("docs[%d].ID = %s, want %s", i, d.ID, ids[i])
			}
		}
	})
}

func TestStore_UpdateMergeAndIncrement(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Set(ctx, Projects, "map.png", Fields{"imageKey": "map.png", "pointCount": 0}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			if err := s.Update(ctx, Projects, "map.png", Fields{"pointCount": Increment(1)}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
		}
		if err := s.Update(ctx, Projects, "map.png", Fields{"pointCount": Increment(-1), "spotCount": Increment(2)}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		doc, err := s.Get(ctx, Projects, "map.png")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if doc.Fields["pointCount"] != float64(2) {
			t.Errorf("pointCount = %v, want 2", doc.Fields["pointCount"])
		}
		if doc.Fields["spotCount"] != float64(2) {
			t.Errorf("spotCount = %v, want 2 (missing field starts at zero)", doc.Fields["spotCount"])
		}
		if doc.Fields["imageKey"] != "map.png" {
			t.Errorf("imageKey = %v, merge must keep untouched fields", doc.Fields["imageKey"])
		}
	})
}

func TestStore_UpdateMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		err := s.Update(context.Background(), points, "nope", Fields{"x": 1})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_SetCreatesThenMerges(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Set(ctx, Projects, "a.png", Fields{"imageWidth": 800, "count": Increment(5)}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Set(ctx, Projects, "a.png", Fields{"imageHeight": 600}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		doc, err := s.Get(ctx, Projects, "a.png")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if doc.Fields["imageWidth"] != float64(800) || doc.Fields["imageHeight"] != float64(600) {
			t.Errorf("fields = %v", doc.Fields)
		}
		if doc.Fields["count"] != float64(5) {
			t.Errorf("count = %v, want 5", doc.Fields["count"])
		}
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.Add(ctx, points, Fields{"id": "A-01"})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := s.Delete(ctx, points, id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, points, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, points, id); err != nil {
			t.Errorf("second Delete() error = %v, want nil", err)
		}
	})
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		other := Annotations("map.png", models.KindSpots)
		otherProject := Annotations("map.png.bak", models.KindPoints)
		if _, err := s.Add(ctx, points, Fields{"id": "A-01"}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Add(ctx, other, Fields{"name": "Tower"}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Add(ctx, otherProject, Fields{"id": "A-01"}); err != nil {
			t.Fatal(err)
		}
		for _, c := range []Collection{points, other, otherProject} {
			docs, err := s.Query(ctx, c)
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != 1 {
				t.Errorf("%s has %d docs, want 1", c, len(docs))
			}
		}
	})
}

func TestStore_InvalidCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		bad := []Collection{
			{Kind: models.KindPoints},
			{Project: "map.png", Kind: "lines"},
			{Project: "map.png"},
		}
		for _, c := range bad {
			if _, err := s.Query(ctx, c); !errors.Is(err, ErrInvalidCollection) {
				t.Errorf("Query(%+v) error = %v, want ErrInvalidCollection", c, err)
			}
		}
	})
}

func TestStore_SubscribeInitialAndChanges(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.Add(ctx, points, Fields{"id": "A-01"}); err != nil {
			t.Fatal(err)
		}

		l, ch := snapshots(t)
		sub, err := s.Subscribe(ctx, points, l)
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		defer sub.Unsubscribe()

		waitFor(t, ch, hasLen(1))

		id, err := s.Add(ctx, points, Fields{"id": "B-02"})
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, ch, hasLen(2))

		if err := s.Delete(ctx, points, id); err != nil {
			t.Fatal(err)
		}
		waitFor(t, ch, hasLen(1))
	})
}

func TestStore_SubscribeOtherCollectionSilent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var calls atomic.Int32
		sub, err := s.Subscribe(ctx, points, func(docs []Document) error {
			calls.Add(1)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Unsubscribe()

		if _, err := s.Add(ctx, Annotations("map.png", models.KindSpots), Fields{"name": "x"}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
		if got := calls.Load(); got != 1 {
			t.Errorf("listener calls = %d, want 1 (initial snapshot only)", got)
		}
	})
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		l, ch := snapshots(t)
		sub, err := s.Subscribe(ctx, points, l)
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, ch, hasLen(0))
		sub.Unsubscribe()
		sub.Unsubscribe()

		if _, err := s.Add(ctx, points, Fields{"id": "A-01"}); err != nil {
			t.Fatal(err)
		}
		select {
		case docs := <-ch:
			t.Errorf("delivery after Unsubscribe: %v", docs)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestStore_ContextCancelUnsubscribes(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		l, ch := snapshots(t)
		if _, err := s.Subscribe(ctx, points, l); err != nil {
			t.Fatal(err)
		}
		waitFor(t, ch, hasLen(0))
		cancel()
		time.Sleep(20 * time.Millisecond)

		if _, err := s.Add(context.Background(), points, Fields{"id": "A-01"}); err != nil {
			t.Fatal(err)
		}
		select {
		case docs := <-ch:
			t.Errorf("delivery after cancel: %v", docs)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestStore_ListenerErrorsAndPanicsAreContained(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var calls atomic.Int32
		seen := make(chan int, 16)
		sub, err := s.Subscribe(ctx, points, func(docs []Document) error {
			n := calls.Add(1)
			seen <- len(docs)
			if n == 1 {
				panic("boom")
			}
			return fmt.Errorf("listener failed on %d docs", len(docs))
		})
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Unsubscribe()

		<-seen
		if _, err := s.Add(ctx, points, Fields{"id": "A-01"}); err != nil {
			t.Fatalf("Add() error = %v, listener failures must not reach writers", err)
		}
		deadline := time.After(3 * time.Second)
		for {
			select {
			case n := <-seen:
				if n == 1 {
					return
				}
			case <-deadline:
				t.Fatal("listener not called again after panic")
			}
		}
	})
}

func TestStore_Closed(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		if _, err := s.Add(ctx, points, Fields{}); !errors.Is(err, ErrClosed) {
			t.Errorf("Add() after Close error = %v, want ErrClosed", err)
		}
		if _, err := s.Subscribe(ctx, points, func([]Document) error { return nil }); !errors.Is(err, ErrClosed) {
			t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
		}
	})
}

func TestStore_ReturnedFieldsAreCopies(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id, err := s.Add(ctx, points, Fields{"id": "A-01"})
		if err != nil {
			t.Fatal(err)
		}
		doc, _ := s.Get(ctx, points, id)
		doc.Fields["id"] = "mutated"
		again, _ := s.Get(ctx, points, id)
		if again.Fields["id"] != "A-01" {
			t.Errorf("stored value changed through returned map: %v", again.Fields["id"])
		}
	})
}
