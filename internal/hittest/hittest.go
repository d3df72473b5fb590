// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package hittest classifies a canvas-space pointer position against the
// entities currently on the map.
//
// The policy is first-match, not nearest-match. Entity types are tested in a
// fixed priority order that depends on the edit mode, and within one type the
// collection is scanned in order and the first entity within its threshold
// wins. Overlaps between types are therefore resolved by priority alone,
// never by comparing distances across types.
//
// Priority by mode:
//
//	Point: points, spots
//	Spot:  spots, points
//	Route: selected route waypoints, spots, points
//	Area:  selected area vertices, spots, points
package hittest

import "github.com/tomtom215/mapmark/internal/geometry"

// Mode is the active edit mode.
type Mode string

const (
	ModePoint Mode = "point"
	ModeSpot  Mode = "spot"
	ModeRoute Mode = "route"
	ModeArea  Mode = "area"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModePoint, ModeSpot, ModeRoute, ModeArea:
		return true
	}
	return false
}

// ObjectType identifies the kind of entity that was hit.
type ObjectType string

const (
	TypePoint    ObjectType = "point"
	TypeSpot     ObjectType = "spot"
	TypeWaypoint ObjectType = "waypoint"
	TypeVertex   ObjectType = "vertex"
)

// Thresholds are per-type hit radii in canvas pixels.
type Thresholds struct {
	Point    float64
	Spot     float64
	Waypoint float64
	Vertex   float64
}

// DefaultThresholds matches the rendered marker sizes: spots draw larger than
// points, so they get a wider radius.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Point:    8,
		Spot:     10,
		Waypoint: 10,
		Vertex:   10,
	}
}

// Collections is the canvas-space geometry the tester inspects. Waypoints and
// Vertices belong to the selected route and area only.
type Collections struct {
	Points    []geometry.Point
	Spots     []geometry.Point
	Waypoints []geometry.Point
	Vertices  []geometry.Point
}

// Hit names the matched entity by type and index within its collection.
type Hit struct {
	Type  ObjectType
	Index int
}

type step struct {
	typ       ObjectType
	positions []geometry.Point
	threshold float64
}

// FindObjectAt returns the first entity within threshold of p, following the
// mode's priority order. The boolean is false when nothing was hit.
func FindObjectAt(p geometry.Point, c Collections, mode Mode, th Thresholds) (Hit, bool) {
	for _, s := range plan(c, mode, th) {
		if i := firstWithin(p, s.positions, s.threshold); i >= 0 {
			return Hit{Type: s.typ, Index: i}, true
		}
	}
	return Hit{}, false
}

func plan(c Collections, mode Mode, th Thresholds) []step {
	points := step{TypePoint, c.Points, th.Point}
	spots := step{TypeSpot, c.Spots, th.Spot}

	switch mode {
	case ModePoint:
		return []step{points, spots}
	case ModeRoute:
		return []step{{TypeWaypoint, c.Waypoints, th.Waypoint}, spots, points}
	case ModeArea:
		return []step{{TypeVertex, c.Vertices, th.Vertex}, spots, points}
	default:
		return []step{spots, points}
	}
}

func firstWithin(p geometry.Point, positions []geometry.Point, threshold float64) int {
	for i, q := range positions {
		if geometry.Distance(p, q) <= threshold {
			return i
		}
	}
	return -1
}
