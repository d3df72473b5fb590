// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/models"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name   string
		stored any
		want   any
		equal  bool
	}{
		{"float vs int", float64(3), 3, true},
		{"float vs int64", float64(3), int64(3), true},
		{"float vs different int", float64(3), 4, false},
		{"float vs numeric string", float64(12.5), "12.5", true},
		{"float vs text", float64(3), "three", false},
		{"bool vs bool", true, true, true},
		{"bool vs string", false, "false", true},
		{"bool vs bad string", true, "yes", false},
		{"bool vs number", true, 1, false},
		{"string vs string", "A-01", "A-01", true},
		{"string vs number", "3", 3, false},
		{"nil vs nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := valuesEqual(tt.stored, tt.want); got != tt.equal {
				t.Errorf("valuesEqual(%#v, %#v) = %v, want %v", tt.stored, tt.want, got, tt.equal)
			}
		})
	}
}

func TestIncrementWireForm(t *testing.T) {
	data, err := json.Marshal(Fields{"pointCount": Increment(-1)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"pointCount":{"$increment":-1}}` {
		t.Errorf("wire form = %s", data)
	}

	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	inc, ok := f["pointCount"].(increment)
	if !ok || inc.n != -1 {
		t.Errorf("decoded value = %#v, want increment{-1}", f["pointCount"])
	}

	got := merge(Fields{"pointCount": float64(4)}, f)
	if got["pointCount"] != float64(3) {
		t.Errorf("merged pointCount = %v, want 3", got["pointCount"])
	}
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := Fields{"a": float64(1)}
	out := merge(base, Fields{"a": float64(2), "b": "x"})
	if base["a"] != float64(1) || len(base) != 1 {
		t.Errorf("base mutated: %v", base)
	}
	if out["a"] != float64(2) || out["b"] != "x" {
		t.Errorf("merge result = %v", out)
	}
}

func TestFieldsOfAndDecode(t *testing.T) {
	type wire struct {
		ID       string `json:"id"`
		X        int    `json:"x"`
		IsMarker bool   `json:"isMarker"`
	}
	f, err := FieldsOf(wire{ID: "A-01", X: 7, IsMarker: true})
	if err != nil {
		t.Fatalf("FieldsOf() error = %v", err)
	}
	if f["x"] != float64(7) {
		t.Errorf("x = %#v, want float64(7)", f["x"])
	}

	var back wire
	if err := (Document{ID: "d1", Fields: f}).Decode(&back); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back != (wire{ID: "A-01", X: 7, IsMarker: true}) {
		t.Errorf("Decode() = %+v", back)
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := Fields{"waypoints": []any{map[string]any{"x": float64(1)}}}
	c := f.Clone()
	c["waypoints"].([]any)[0].(map[string]any)["x"] = float64(9)
	if f["waypoints"].([]any)[0].(map[string]any)["x"] != float64(1) {
		t.Error("Clone shares nested values")
	}
}

func TestCollectionPath(t *testing.T) {
	tests := []struct {
		c    Collection
		want string
	}{
		{Projects, "projects"},
		{Annotations("map.png", models.KindRoutes), "projects/map.png/routes"},
		{Annotations("floor 1/plan.png", models.KindAreas), "projects/floor%201%2Fplan.png/areas"},
	}
	for _, tt := range tests {
		if got := tt.c.Path(); got != tt.want {
			t.Errorf("Path() = %q, want %q", got, tt.want)
		}
	}
}
