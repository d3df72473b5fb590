// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package geometry

import "testing"

// isCyclicPerimeter reports whether every consecutive pair in the ring shares
// an x or y coordinate, which is true only for a perimeter walk of an
// axis-aligned rectangle.
func isCyclicPerimeter(ring []Point) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		if a.X != b.X && a.Y != b.Y {
			return false
		}
	}
	return true
}

func TestReorderVerticesSquare(t *testing.T) {
	t.Parallel()

	scrambled := []Point{{10, 10}, {0, 10}, {10, 0}, {0, 0}}
	if isCyclicPerimeter(scrambled) {
		t.Fatal("fixture should not already be a perimeter walk")
	}

	got := ReorderVertices(scrambled)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if !isCyclicPerimeter(got) {
		t.Errorf("ReorderVertices = %v, want a perimeter ordering", got)
	}

	// atan2 runs from -pi: top-left (0,0) first, then (10,0), (10,10), (0,10).
	want := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReorderVertices = %v, want %v", got, want)
		}
	}

	if scrambled[0] != (Point{10, 10}) {
		t.Error("input slice was modified")
	}
}

func TestReorderVerticesStableTies(t *testing.T) {
	t.Parallel()

	// Two vertices at the same angle from the centroid keep insertion order.
	in := []Point{{0, 0}, {4, 0}, {2, 2}, {4, 4}, {0, 4}}
	c := Centroid(in)
	if c.X != 2 || c.Y != 2 {
		t.Fatalf("centroid = %v", c)
	}
	got := ReorderVertices(in)
	if len(got) != len(in) {
		t.Fatalf("len = %d", len(got))
	}
	// (2,2) sits on the centroid: atan2(0,0) == 0, same as nothing else here,
	// and it must appear exactly once.
	seen := 0
	for _, p := range got {
		if p == (Point{2, 2}) {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("centroid vertex seen %d times", seen)
	}

	dup := []Point{{0, 0}, {0, 0}, {5, 0}, {5, 5}}
	got = ReorderVertices(dup)
	if got[0] != (Point{0, 0}) || got[1] != (Point{0, 0}) {
		t.Errorf("duplicate vertices should stay adjacent, got %v", got)
	}
}

func TestReorderVerticesShortInput(t *testing.T) {
	t.Parallel()

	in := []Point{{5, 5}, {1, 1}}
	got := ReorderVertices(in)
	if got[0] != in[0] || got[1] != in[1] {
		t.Errorf("fewer than three vertices should be returned as-is, got %v", got)
	}
	if len(ReorderVertices(nil)) != 0 {
		t.Error("nil input should produce empty output")
	}
}

func TestArea(t *testing.T) {
	t.Parallel()

	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if a := Area(square); a != 100 {
		t.Errorf("Area = %v, want 100", a)
	}
	bowtie := []Point{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	if Area(ReorderVertices(bowtie)) != 100 {
		t.Errorf("reordered bowtie area = %v, want 100", Area(ReorderVertices(bowtie)))
	}
	if Area(square[:2]) != 0 {
		t.Error("degenerate polygon should have zero area")
	}
}
