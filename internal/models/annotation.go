// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package models

import (
	"slices"

	"github.com/tomtom215/mapmark/internal/geometry"
)

// Kind names an annotation sub-collection of a project.
type Kind string

const (
	KindPoints Kind = "points"
	KindSpots  Kind = "spots"
	KindRoutes Kind = "routes"
	KindAreas  Kind = "areas"
)

// Kinds lists every annotation kind in a stable order.
var Kinds = []Kind{KindPoints, KindSpots, KindRoutes, KindAreas}

// Valid reports whether k is one of the annotation kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Point is a labeled location on the map.
//
// X and Y are canvas pixels while editing and image pixels in exports and
// remote documents. Image is the image-space position X and Y were last
// projected from. An empty ID marks a transient, unsaved point. Markers are
// read-only points brought in by import.
type Point struct {
	X        int             `json:"x"`
	Y        int             `json:"y"`
	ID       string          `json:"id"`
	IsMarker bool            `json:"isMarker"`
	Image    geometry.Anchor `json:"-"`
	RemoteID string          `json:"-"`
}

// Position returns the point's coordinates.
func (p Point) Position() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y}
}

// Spot is a named location. Names are free text of at most 10 characters.
type Spot struct {
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Name     string          `json:"name"`
	Image    geometry.Anchor `json:"-"`
	RemoteID string          `json:"-"`
}

// Position returns the spot's coordinates.
func (s Spot) Position() geometry.Point {
	return geometry.Point{X: s.X, Y: s.Y}
}

// Waypoint is one vertex of a route polyline.
type Waypoint struct {
	X     int             `json:"x"`
	Y     int             `json:"y"`
	Image geometry.Anchor `json:"-"`
}

// Route is a user-drawn polyline between two named endpoints. Each endpoint
// references a Point.ID or a Spot.Name. Waypoints keep insertion order.
//
// LocalID identifies the route inside one editor's store and survives
// snapshot merges; it is never sent to the remote store.
type Route struct {
	Name         string     `json:"routeName"`
	StartPointID string     `json:"startPointId"`
	EndPointID   string     `json:"endPointId"`
	Waypoints    []Waypoint `json:"waypoints"`
	LocalID      uint64     `json:"-"`
	RemoteID     string     `json:"-"`
}

// Clone returns a deep copy of r.
func (r Route) Clone() Route {
	r.Waypoints = slices.Clone(r.Waypoints)
	return r
}

// HasEndpoints reports whether both endpoints are set.
func (r Route) HasEndpoints() bool {
	return r.StartPointID != "" && r.EndPointID != ""
}

// Positions returns the waypoint coordinates in order.
func (r Route) Positions() []geometry.Point {
	out := make([]geometry.Point, len(r.Waypoints))
	for i, w := range r.Waypoints {
		out[i] = geometry.Point{X: w.X, Y: w.Y}
	}
	return out
}

// IsEmpty reports whether the route carries no label at all.
func (r Route) IsEmpty() bool {
	return r.Name == "" && r.StartPointID == "" && r.EndPointID == ""
}

// Vertex is one corner of an area polygon.
type Vertex struct {
	X     int             `json:"x"`
	Y     int             `json:"y"`
	Image geometry.Anchor `json:"-"`
}

// MinAreaVertices is the smallest polygon an area may persist.
const MinAreaVertices = 3

// Area is a closed polygon. Vertices are kept in centroid-angle order.
// IsModified is true only when the area is persistable: it has a name and at
// least MinAreaVertices vertices.
//
// LocalID plays the same role as Route.LocalID.
type Area struct {
	Name       string   `json:"areaName"`
	Vertices   []Vertex `json:"vertices"`
	IsModified bool     `json:"isModified"`
	LocalID    uint64   `json:"-"`
	RemoteID   string   `json:"-"`
}

// Clone returns a deep copy of a.
func (a Area) Clone() Area {
	a.Vertices = slices.Clone(a.Vertices)
	return a
}

// Persistable reports whether the area has a name and enough vertices.
func (a Area) Persistable() bool {
	return a.Name != "" && len(a.Vertices) >= MinAreaVertices
}

// Positions returns the vertex coordinates in order.
func (a Area) Positions() []geometry.Point {
	out := make([]geometry.Point, len(a.Vertices))
	for i, v := range a.Vertices {
		out[i] = geometry.Point{X: v.X, Y: v.Y}
	}
	return out
}

// ReorderVertices sorts vs by angle around their centroid. Each vertex keeps
// its image anchor.
func ReorderVertices(vs []Vertex) []Vertex {
	sorted := geometry.ReorderVertices(Area{Vertices: vs}.Positions())
	used := make([]bool, len(vs))
	out := make([]Vertex, 0, len(sorted))
	for _, p := range sorted {
		for j, v := range vs {
			if !used[j] && v.X == p.X && v.Y == p.Y {
				used[j] = true
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// VerticesFrom converts polygon points back to vertices.
func VerticesFrom(ps []geometry.Point) []Vertex {
	out := make([]Vertex, len(ps))
	for i, p := range ps {
		out[i] = Vertex{X: p.X, Y: p.Y}
	}
	return out
}
