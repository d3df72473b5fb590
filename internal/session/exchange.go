// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package session

import (
	"time"

	"github.com/tomtom215/mapmark/internal/exchange"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/store"
)

// Frame returns the conversion frame for export documents.
func (s *Session) Frame() exchange.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return exchange.Frame{ImageReference: s.gw.ProjectKey(), Image: s.image, Canvas: s.canvas}
}

// ExportPoints returns the labeled points as an export document.
func (s *Session) ExportPoints(at time.Time) (models.PointExport, error) {
	return exchange.ExportPoints(s.Frame(), s.Points.GetAll(), at)
}

// ExportSelectedRoute returns the selected route as an export document.
func (s *Session) ExportSelectedRoute(at time.Time) (models.RouteExport, error) {
	r, _, ok := s.Routes.Selected()
	if !ok {
		return models.RouteExport{}, store.ErrNoSelection
	}
	return exchange.ExportRoute(s.Frame(), r, at)
}

// ImportMarkers appends every point of doc as a read-only marker. Markers
// stay local. It returns how many were added.
func (s *Session) ImportMarkers(doc models.PointExport) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	pts, err := exchange.ImportPoints(s.Frame(), doc, true)
	if err != nil {
		return 0, err
	}
	for _, p := range pts {
		s.Points.Add(p)
	}
	return len(pts), nil
}

// ImportRoute adds the route in doc as a new, unsaved route and selects it.
func (s *Session) ImportRoute(doc models.RouteExport) (int, error) {
	if err := s.check(); err != nil {
		return -1, err
	}
	r, err := exchange.ImportRoute(s.Frame(), doc)
	if err != nil {
		return -1, err
	}
	routes := append(s.Routes.GetAll(), r)
	s.Routes.Replace(routes)
	i := len(routes) - 1
	return i, s.Routes.SelectAt(i)
}
