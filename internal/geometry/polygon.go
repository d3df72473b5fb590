// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package geometry

import (
	"math"
	"sort"
)

// Centroid returns the arithmetic mean of the vertices.
// An empty slice yields the origin.
func Centroid(vertices []Point) PointF {
	if len(vertices) == 0 {
		return PointF{}
	}
	var sx, sy float64
	for _, v := range vertices {
		sx += float64(v.X)
		sy += float64(v.Y)
	}
	n := float64(len(vertices))
	return PointF{X: sx / n, Y: sy / n}
}

// ReorderVertices sorts vertices by their angle around the centroid, using
// atan2(y-cy, x-cx) as the key. Ties keep their relative input order. The
// result approximates a simple (non-self-intersecting) polygon; it does not
// guarantee one for strongly concave shapes.
//
// The input slice is not modified.
func ReorderVertices(vertices []Point) []Point {
	out := make([]Point, len(vertices))
	copy(out, vertices)
	if len(out) < 3 {
		return out
	}

	c := Centroid(out)
	angles := make([]float64, len(out))
	idx := make([]int, len(out))
	for i, v := range out {
		idx[i] = i
		angles[i] = math.Atan2(float64(v.Y)-c.Y, float64(v.X)-c.X)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return angles[idx[a]] < angles[idx[b]]
	})

	sorted := make([]Point, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// SignedArea returns the shoelace area of the polygon. Positive means the
// vertices run counter-clockwise in a y-up frame (clockwise on screen).
func SignedArea(vertices []Point) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := vertices[i]
		b := vertices[(i+1)%n]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	return sum / 2
}

// Area returns the absolute polygon area.
func Area(vertices []Point) float64 {
	return math.Abs(SignedArea(vertices))
}
