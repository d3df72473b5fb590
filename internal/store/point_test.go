// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import (
	"errors"
	"testing"

	"github.com/tomtom215/mapmark/internal/models"
)

func pointIDs(ps []models.Point) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPointRemoveTrailingEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      []models.Point
		want    []string
		removed int
	}{
		{
			name:    "trailing run",
			in:      []models.Point{{ID: "A-01"}, {ID: ""}, {ID: ""}},
			want:    []string{"A-01"},
			removed: 2,
		},
		{
			name:    "stops at labeled entry",
			in:      []models.Point{{ID: ""}, {ID: "A-01"}, {ID: ""}},
			want:    []string{"", "A-01"},
			removed: 1,
		},
		{
			name:    "stops at marker",
			in:      []models.Point{{ID: "A-01"}, {IsMarker: true}, {ID: ""}},
			want:    []string{"A-01", ""},
			removed: 1,
		},
		{
			name:    "nothing to remove",
			in:      []models.Point{{ID: "A-01"}},
			want:    []string{"A-01"},
			removed: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewPointStore()
			s.Replace(tt.in)

			if got := s.RemoveTrailingEmpty(); got != tt.removed {
				t.Errorf("removed %d, want %d", got, tt.removed)
			}
			if got := pointIDs(s.GetAll()); !equalStrings(got, tt.want) {
				t.Errorf("ids = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPointUpdateID(t *testing.T) {
	t.Parallel()

	s := NewPointStore()
	s.Add(models.Point{X: 1, Y: 1, ID: "A-01"})
	i := s.Add(models.Point{X: 5, Y: 5})

	// Live typing stores the raw value.
	if _, err := s.UpdateID(i, "b", UpdateOptions{SkipFormatting: true}); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Get(i); p.ID != "b" {
		t.Errorf("raw id = %q, want b", p.ID)
	}

	// Commit canonicalizes.
	res, err := s.UpdateID(i, "ｂ２", UpdateOptions{})
	if err != nil || !res.IsValid {
		t.Fatalf("commit: %+v %v", res, err)
	}
	if p, _ := s.Get(i); p.ID != "B-02" {
		t.Errorf("committed id = %q, want B-02", p.ID)
	}

	// Collision keeps the raw value and reports it.
	res, err = s.UpdateID(i, "a1", UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsValid {
		t.Error("collision should be rejected")
	}
	if p, _ := s.Get(i); p.ID != "a1" {
		t.Errorf("rejected id = %q, want raw a1", p.ID)
	}

	// Blank commit removes the point.
	if _, err := s.UpdateID(i, "  ", UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1 after blank commit", s.Len())
	}
}

func TestPointMarkersReadOnly(t *testing.T) {
	t.Parallel()

	s := NewPointStore()
	i := s.Add(models.Point{ID: "M-01", IsMarker: true})

	if err := s.UpdateGeometry(i, 3, 3); !errors.Is(err, ErrReadOnly) {
		t.Errorf("move marker: %v, want ErrReadOnly", err)
	}
	if _, err := s.UpdateID(i, "x", UpdateOptions{}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("rename marker: %v, want ErrReadOnly", err)
	}
}

func TestPointSignals(t *testing.T) {
	t.Parallel()

	s := NewPointStore()

	var counts []int
	var changes int
	var ops []Op
	s.OnCountChange(func(n int) { counts = append(counts, n) })
	disconnect := s.OnChange(func(ps []models.Point) { changes++ })
	s.OnMutation(func(m Mutation[models.Point]) { ops = append(ops, m.Op) })

	i := s.Add(models.Point{X: 10, Y: 10})
	s.Add(models.Point{ID: "Z-01", IsMarker: true})
	if _, err := s.UpdateID(i, "c3", UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateGeometry(i, 12.6, 9.4); err != nil {
		t.Fatal(err)
	}
	disconnect()
	if err := s.RemoveAt(i); err != nil {
		t.Fatal(err)
	}

	wantCounts := []int{0, 0, 1, 1, 0}
	if len(counts) != len(wantCounts) {
		t.Fatalf("counts = %v, want %v", counts, wantCounts)
	}
	for k := range wantCounts {
		if counts[k] != wantCounts[k] {
			t.Errorf("counts = %v, want %v", counts, wantCounts)
			break
		}
	}
	if changes != 4 {
		t.Errorf("change events = %d, want 4 (disconnected before remove)", changes)
	}
	wantOps := []Op{OpAdd, OpAdd, OpRename, OpMove, OpRemove}
	if len(ops) != len(wantOps) {
		t.Fatalf("ops = %v, want %v", ops, wantOps)
	}
	for k := range wantOps {
		if ops[k] != wantOps[k] {
			t.Errorf("ops = %v, want %v", ops, wantOps)
			break
		}
	}
}

func TestPointUpdateGeometryRounds(t *testing.T) {
	t.Parallel()

	s := NewPointStore()
	i := s.Add(models.Point{})

	var got Mutation[models.Point]
	s.OnMutation(func(m Mutation[models.Point]) { got = m })

	if err := s.UpdateGeometry(i, 12.5, -3.5); err != nil {
		t.Fatal(err)
	}
	p, _ := s.Get(i)
	if p.X != 13 || p.Y != -4 {
		t.Errorf("position = (%d,%d), want (13,-4)", p.X, p.Y)
	}
	if got.Previous.X != 0 || got.Entity.X != 13 {
		t.Errorf("mutation = %+v", got)
	}
	if err := s.UpdateGeometry(5, 0, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
}

func TestPointBindRemoteID(t *testing.T) {
	t.Parallel()

	s := NewPointStore()
	s.Add(models.Point{ID: "A-01"})

	if !s.BindRemoteID("a1", "doc-1") {
		t.Fatal("expected point A-01 to be bound")
	}
	if p, _ := s.Get(0); p.RemoteID != "doc-1" {
		t.Errorf("remote id = %q", p.RemoteID)
	}
	if s.BindRemoteID("B-02", "doc-2") {
		t.Error("unknown id should not bind")
	}
}

func TestGetAllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewRouteStore()
	s.Create()
	if err := s.AddWaypoint(1, 1); err != nil {
		t.Fatal(err)
	}

	all := s.GetAll()
	all[0].Waypoints[0].X = 99

	if r, _ := s.Get(0); r.Waypoints[0].X != 1 {
		t.Error("GetAll leaked internal waypoint slice")
	}
}
