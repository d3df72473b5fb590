// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package models defines the Mapmark annotation entities and their documents.

Key Components:

  - Point: a labeled location ("A-07") or a read-only imported marker
  - Spot: a named location, up to ten characters
  - Route: a waypoint polyline between two endpoints, each a point id or spot name
  - Area: a named polygon of at least MinAreaVertices vertices
  - Project: the per-image document carrying counters and audit fields
  - PointExport, SpotExport, RouteExport, AreaExport: JSON export documents

Coordinates:

Entities held by the editor stores are in canvas space. Remote documents and
export documents are in image space, the original image's pixel grid. The
sync and exchange packages convert between the two.

JSON tags follow the remote document field names so the same structs decode
store documents and export files.
*/
package models
