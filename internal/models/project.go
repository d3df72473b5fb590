// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package models

import "time"

// Project is the root document for one annotated image. It is keyed by the
// image file name and carries denormalized entity counts.
type Project struct {
	ImageKey      string    `json:"imageKey"`
	ImageWidth    int       `json:"imageWidth"`
	ImageHeight   int       `json:"imageHeight"`
	PointCount    int       `json:"pointCount"`
	SpotCount     int       `json:"spotCount"`
	RouteCount    int       `json:"routeCount"`
	AreaCount     int       `json:"areaCount"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	LastUpdatedBy string    `json:"lastUpdatedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CountField returns the project document field holding the count for k.
func CountField(k Kind) string {
	switch k {
	case KindPoints:
		return "pointCount"
	case KindSpots:
		return "spotCount"
	case KindRoutes:
		return "routeCount"
	case KindAreas:
		return "areaCount"
	}
	return ""
}
