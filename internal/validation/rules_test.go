// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package validation

import (
	"testing"

	"github.com/tomtom215/mapmark/internal/models"
)

func TestDuplicatePointID(t *testing.T) {
	t.Parallel()

	points := []models.Point{{ID: "A-01"}, {ID: ""}, {ID: "B-02"}}

	if got := DuplicatePointID(points, "a1", 1); got != 0 {
		t.Errorf("DuplicatePointID(a1) = %d, want 0", got)
	}
	if got := DuplicatePointID(points, "A-01", 0); got != -1 {
		t.Errorf("a point should not collide with itself, got %d", got)
	}
	if got := DuplicatePointID(points, "", 0); got != -1 {
		t.Errorf("blank ids never collide, got %d", got)
	}

	if r := CheckPointID(points, "ｂ２", 1); r.IsValid || r.Message != "point id B-02 is already used" {
		t.Errorf("CheckPointID = %+v", r)
	}
}

func TestCheckSpot(t *testing.T) {
	t.Parallel()

	spots := []models.Spot{{Name: "Pier"}, {Name: ""}}

	if r := CheckSpot(spots, "PIER", 1); r.IsValid {
		t.Error("case-only difference should collide")
	}
	if r := CheckSpot(spots, "Pier", 0); !r.IsValid {
		t.Errorf("renaming to own name rejected: %s", r.Message)
	}
	if r := CheckSpot(spots, "Market", 1); !r.IsValid {
		t.Errorf("fresh name rejected: %s", r.Message)
	}
}

func TestCheckRouteEndpoints(t *testing.T) {
	t.Parallel()

	ids := []string{"A-01", "A-02", ""}
	names := []string{"Pier"}
	wp := []models.Waypoint{{X: 1, Y: 1}}

	tests := []struct {
		name  string
		route models.Route
		spots []string
		valid bool
	}{
		{"both unset", models.Route{Waypoints: wp}, names, false},
		{"start equals end", models.Route{StartPointID: "A-01", EndPointID: "A-01", Waypoints: wp}, names, false},
		{"no waypoints", models.Route{StartPointID: "A-01", EndPointID: "A-02"}, names, false},
		{"valid", models.Route{StartPointID: "A-01", EndPointID: "A-02", Waypoints: wp}, names, true},
		{"spot endpoint", models.Route{StartPointID: "A-01", EndPointID: "pier", Waypoints: wp}, names, true},
		{"spot endpoint without spot list", models.Route{StartPointID: "A-01", EndPointID: "Pier", Waypoints: wp}, nil, false},
		{"unregistered start", models.Route{StartPointID: "C-09", EndPointID: "A-02", Waypoints: wp}, names, false},
		{"end unset", models.Route{StartPointID: "A-01", Waypoints: wp}, names, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := CheckRouteEndpoints(tt.route, ids, tt.spots)
			if r.IsValid != tt.valid {
				t.Errorf("IsValid = %v (%s), want %v", r.IsValid, r.Message, tt.valid)
			}
			if !r.IsValid && r.Message == "" {
				t.Error("invalid result without message")
			}
		})
	}
}

func TestCheckRouteEndpointsAddingWaypoint(t *testing.T) {
	t.Parallel()

	ids := []string{"A-01", "A-02"}
	r := models.Route{StartPointID: "A-01", EndPointID: "A-02"}
	if CheckRouteEndpoints(r, ids, nil).IsValid {
		t.Fatal("route without waypoints should be invalid")
	}
	r.Waypoints = append(r.Waypoints, models.Waypoint{X: 5, Y: 5})
	if res := CheckRouteEndpoints(r, ids, nil); !res.IsValid {
		t.Errorf("route with one waypoint should be valid: %s", res.Message)
	}
}

func TestCheckArea(t *testing.T) {
	t.Parallel()

	tri := []models.Vertex{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}

	if CheckArea(models.Area{Vertices: tri}).IsValid {
		t.Error("unnamed area accepted")
	}
	if CheckArea(models.Area{Name: "Dock", Vertices: tri[:2]}).IsValid {
		t.Error("two-vertex area accepted")
	}
	if r := CheckArea(models.Area{Name: "Dock", Vertices: tri}); !r.IsValid {
		t.Errorf("valid area rejected: %s", r.Message)
	}
}
