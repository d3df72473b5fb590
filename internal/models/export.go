// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package models

import "time"

// Export documents carry coordinates in image pixels only.

// ImageInfo describes the source image.
type ImageInfo struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// PointExport is the file schema for a set of points.
type PointExport struct {
	TotalPoints    int                 `json:"totalPoints" validate:"gte=0"`
	ImageReference string              `json:"imageReference"`
	ImageInfo      ImageInfo           `json:"imageInfo"`
	Points         []PointExportRecord `json:"points" validate:"dive"`
	ExportedAt     time.Time           `json:"exportedAt"`
}

// PointExportRecord is one point in a PointExport.
type PointExportRecord struct {
	Index    int    `json:"index" validate:"gte=0"`
	ID       string `json:"id" validate:"omitempty,pointid"`
	ImageX   int    `json:"imageX" validate:"gte=0"`
	ImageY   int    `json:"imageY" validate:"gte=0"`
	IsMarker bool   `json:"isMarker"`
}

// RouteInfo names a route's endpoints.
type RouteInfo struct {
	StartPoint    string `json:"startPoint" validate:"required"`
	EndPoint      string `json:"endPoint" validate:"required,nefield=StartPoint"`
	WaypointCount int    `json:"waypointCount" validate:"gte=1"`
}

// RouteExport is the file schema for one route.
type RouteExport struct {
	RouteInfo      RouteInfo           `json:"routeInfo"`
	RouteName      string              `json:"routeName,omitempty"`
	ImageReference string              `json:"imageReference"`
	ImageInfo      ImageInfo           `json:"imageInfo"`
	Points         []RouteExportRecord `json:"points" validate:"min=1,dive"`
	ExportedAt     time.Time           `json:"exportedAt"`
}

// WaypointRecordType is the type tag of every RouteExportRecord.
const WaypointRecordType = "waypoint"

// RouteExportRecord is one waypoint in a RouteExport.
type RouteExportRecord struct {
	Type   string `json:"type" validate:"eq=waypoint"`
	Index  int    `json:"index" validate:"gte=0"`
	ImageX int    `json:"imageX" validate:"gte=0"`
	ImageY int    `json:"imageY" validate:"gte=0"`
}

// SpotExport is the file schema for a set of spots.
type SpotExport struct {
	TotalSpots     int                `json:"totalSpots" validate:"gte=0"`
	ImageReference string             `json:"imageReference"`
	ImageInfo      ImageInfo          `json:"imageInfo"`
	Spots          []SpotExportRecord `json:"spots" validate:"dive"`
	ExportedAt     time.Time          `json:"exportedAt"`
}

// SpotExportRecord is one spot in a SpotExport.
type SpotExportRecord struct {
	Index  int    `json:"index" validate:"gte=0"`
	Name   string `json:"name" validate:"spotname"`
	ImageX int    `json:"imageX" validate:"gte=0"`
	ImageY int    `json:"imageY" validate:"gte=0"`
}

// AreaExport is the file schema for one area.
type AreaExport struct {
	AreaName       string             `json:"areaName" validate:"required"`
	ImageReference string             `json:"imageReference"`
	ImageInfo      ImageInfo          `json:"imageInfo"`
	Vertices       []AreaExportRecord `json:"vertices" validate:"min=3,dive"`
	ExportedAt     time.Time          `json:"exportedAt"`
}

// AreaExportRecord is one vertex in an AreaExport.
type AreaExportRecord struct {
	Index  int `json:"index" validate:"gte=0"`
	ImageX int `json:"imageX" validate:"gte=0"`
	ImageY int `json:"imageY" validate:"gte=0"`
}
