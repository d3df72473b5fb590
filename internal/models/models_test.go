// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package models

import (
	"testing"

	"github.com/tomtom215/mapmark/internal/geometry"
)

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
		if CountField(k) == "" {
			t.Errorf("CountField(%q) is empty", k)
		}
	}
	if Kind("lines").Valid() {
		t.Error("lines should not be valid")
	}
	if CountField("lines") != "" {
		t.Error("CountField of an unknown kind should be empty")
	}
}

func TestRoute_CloneIsDeep(t *testing.T) {
	r := Route{Name: "coast", Waypoints: []Waypoint{{X: 1, Y: 2}}}
	c := r.Clone()
	c.Waypoints[0].X = 99
	if r.Waypoints[0].X != 1 {
		t.Error("Clone shares the waypoint slice")
	}
}

func TestRoute_Labels(t *testing.T) {
	tests := []struct {
		name      string
		route     Route
		endpoints bool
		empty     bool
	}{
		{"blank", Route{}, false, true},
		{"name only", Route{Name: "coast"}, false, false},
		{"start only", Route{StartPointID: "A-01"}, false, false},
		{"both endpoints", Route{StartPointID: "A-01", EndPointID: "Dock"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.route.HasEndpoints(); got != tt.endpoints {
				t.Errorf("HasEndpoints() = %v, want %v", got, tt.endpoints)
			}
			if got := tt.route.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestArea_Persistable(t *testing.T) {
	tri := []Vertex{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	tests := []struct {
		name string
		area Area
		want bool
	}{
		{"named triangle", Area{Name: "Keep", Vertices: tri}, true},
		{"unnamed", Area{Vertices: tri}, false},
		{"two vertices", Area{Name: "Keep", Vertices: tri[:2]}, false},
	}
	for _, tt := range tests {
		if got := tt.area.Persistable(); got != tt.want {
			t.Errorf("%s: Persistable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVerticesFrom_Positions(t *testing.T) {
	ps := []geometry.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}
	a := Area{Name: "x", Vertices: VerticesFrom(ps)}
	got := a.Positions()
	for i := range ps {
		if got[i] != ps[i] {
			t.Errorf("Positions()[%d] = %v, want %v", i, got[i], ps[i])
		}
	}
	c := a.Clone()
	c.Vertices[0].X = 42
	if a.Vertices[0].X != 1 {
		t.Error("Clone shares the vertex slice")
	}
}

func TestReorderVertices_KeepsAnchors(t *testing.T) {
	vs := []Vertex{
		{X: 10, Y: 0, Image: geometry.AnchorAt(geometry.Point{X: 100, Y: 0})},
		{X: 0, Y: 10, Image: geometry.AnchorAt(geometry.Point{X: 0, Y: 100})},
		{X: 10, Y: 10},
		{X: 0, Y: 0, Image: geometry.AnchorAt(geometry.Point{X: 1, Y: 1})},
	}
	got := ReorderVertices(vs)
	if len(got) != len(vs) {
		t.Fatalf("got %d vertices, want %d", len(got), len(vs))
	}

	want := geometry.ReorderVertices(Area{Vertices: vs}.Positions())
	for i, v := range got {
		if (geometry.Point{X: v.X, Y: v.Y}) != want[i] {
			t.Errorf("vertex %d = (%d,%d), want %v", i, v.X, v.Y, want[i])
		}
		for _, in := range vs {
			if in.X == v.X && in.Y == v.Y && in.Image != v.Image {
				t.Errorf("vertex (%d,%d) lost its anchor", v.X, v.Y)
			}
		}
	}
}
