// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package session

import (
	"fmt"

	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/hittest"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/store"
	"github.com/tomtom215/mapmark/internal/validation"
)

// Outcome describes what a tap did.
type Outcome string

const (
	// OutcomeSelected means an existing entity was hit and nothing changed.
	OutcomeSelected Outcome = "selected"
	// OutcomeCreated means a new unlabeled point or spot was placed.
	OutcomeCreated Outcome = "created"
	// OutcomeEndpoint means a point or spot was assigned as a route endpoint.
	OutcomeEndpoint Outcome = "endpoint"
	// OutcomeWaypoint means a waypoint was appended to the selected route.
	OutcomeWaypoint Outcome = "waypoint"
	// OutcomeVertex means a vertex was added to the selected area.
	OutcomeVertex Outcome = "vertex"
	// OutcomeRejected means the tap was refused. Result says why.
	OutcomeRejected Outcome = "rejected"
)

// TapResult reports a tap. Index is the touched entity: the hit index for
// OutcomeSelected, the new entity for OutcomeCreated, and the selected route
// or area for the drawing outcomes.
type TapResult struct {
	Outcome Outcome
	At      geometry.Point
	Hit     hittest.Hit
	HitOK   bool
	Index   int
	Slot    store.EndpointSlot
	Result  validation.Result
}

func (s *Session) collections() hittest.Collections {
	return hittest.Collections{
		Points:    s.Points.Positions(),
		Spots:     s.Spots.Positions(),
		Waypoints: s.Routes.SelectedWaypoints(),
		Vertices:  s.Areas.SelectedVertices(),
	}
}

// HitTest classifies a canvas position in the current mode.
func (s *Session) HitTest(p geometry.Point) (hittest.Hit, bool) {
	s.mu.Lock()
	mode, th := s.mode, s.thresholds
	s.mu.Unlock()
	return hittest.FindObjectAt(p, s.collections(), mode, th)
}

// Tap handles a click or touch at a pointer position in page pixels.
//
// In point and spot mode a hit selects the entity and a miss places a new
// unlabeled one. In route mode a hit on a point or spot assigns it as the
// next endpoint of the selected route, and a miss appends a waypoint only
// once both endpoints are set and registered. In area mode a miss adds a
// vertex. Route and area mode create a route or area when none is selected.
func (s *Session) Tap(pointer geometry.PointF) (TapResult, error) {
	if err := s.check(); err != nil {
		return TapResult{}, err
	}
	at, err := s.ToCanvas(pointer)
	if err != nil {
		return TapResult{}, err
	}
	hit, ok := s.HitTest(at)
	res := TapResult{At: at, Hit: hit, HitOK: ok, Result: validation.Valid()}

	switch s.Mode() {
	case hittest.ModePoint:
		return s.tapPoint(res)
	case hittest.ModeSpot:
		return s.tapSpot(res)
	case hittest.ModeRoute:
		return s.tapRoute(res)
	case hittest.ModeArea:
		return s.tapArea(res)
	}
	return res, fmt.Errorf("%q: %w", s.Mode(), ErrInvalidMode)
}

func (s *Session) tapPoint(res TapResult) (TapResult, error) {
	if res.HitOK {
		res.Outcome, res.Index = OutcomeSelected, res.Hit.Index
		return res, nil
	}
	res.Outcome = OutcomeCreated
	res.Index = s.Points.Add(models.Point{X: res.At.X, Y: res.At.Y})
	return res, nil
}

func (s *Session) tapSpot(res TapResult) (TapResult, error) {
	if res.HitOK {
		res.Outcome, res.Index = OutcomeSelected, res.Hit.Index
		return res, nil
	}
	res.Outcome = OutcomeCreated
	res.Index = s.Spots.Add(models.Spot{X: res.At.X, Y: res.At.Y})
	return res, nil
}

func (s *Session) tapRoute(res TapResult) (TapResult, error) {
	_, idx, ok := s.Routes.Selected()
	if !ok {
		idx = s.Routes.Create()
	}
	res.Index = idx

	if res.HitOK {
		ref, found := s.endpointRef(res.Hit)
		if !found {
			// A waypoint of the selected route. Dragging handles it.
			res.Outcome = OutcomeSelected
			return res, nil
		}
		slot, err := s.Routes.AssignEndpoint(ref)
		if err != nil {
			return res, err
		}
		if slot == store.SlotNone {
			res.Outcome = OutcomeRejected
			res.Result = validation.Invalid("both route endpoints are already set")
			return res, nil
		}
		res.Outcome, res.Slot = OutcomeEndpoint, slot
		return res, nil
	}

	// Check the route as it would be with the new waypoint.
	r, _, _ := s.Routes.Selected()
	r.Waypoints = append(r.Waypoints, models.Waypoint{X: res.At.X, Y: res.At.Y})
	if check := validation.CheckRouteEndpoints(r, s.Points.IDs(), s.Spots.Names()); !check.IsValid {
		res.Outcome, res.Result = OutcomeRejected, check
		return res, nil
	}
	if err := s.Routes.AddWaypoint(float64(res.At.X), float64(res.At.Y)); err != nil {
		return res, err
	}
	res.Outcome = OutcomeWaypoint
	return res, nil
}

// endpointRef returns the point id or spot name a hit refers to. Unlabeled
// points and spots cannot be endpoints.
func (s *Session) endpointRef(h hittest.Hit) (string, bool) {
	switch h.Type {
	case hittest.TypePoint:
		p, ok := s.Points.Get(h.Index)
		return p.ID, ok && p.ID != ""
	case hittest.TypeSpot:
		sp, ok := s.Spots.Get(h.Index)
		return sp.Name, ok && sp.Name != ""
	}
	return "", false
}

func (s *Session) tapArea(res TapResult) (TapResult, error) {
	_, idx, ok := s.Areas.Selected()
	if !ok {
		idx = s.Areas.Create()
	}
	res.Index = idx

	if res.HitOK {
		res.Outcome = OutcomeSelected
		return res, nil
	}
	if err := s.Areas.AddVertex(float64(res.At.X), float64(res.At.Y)); err != nil {
		return res, err
	}
	res.Outcome = OutcomeVertex
	return res, nil
}

// Drag moves the entity named by hit to a pointer position in page pixels.
// Markers are read-only and return store.ErrReadOnly.
func (s *Session) Drag(hit hittest.Hit, pointer geometry.PointF) error {
	if err := s.check(); err != nil {
		return err
	}
	at, err := s.ToCanvas(pointer)
	if err != nil {
		return err
	}
	x, y := float64(at.X), float64(at.Y)
	switch hit.Type {
	case hittest.TypePoint:
		return s.Points.UpdateGeometry(hit.Index, x, y)
	case hittest.TypeSpot:
		return s.Spots.UpdateGeometry(hit.Index, x, y)
	case hittest.TypeWaypoint:
		return s.Routes.UpdateWaypoint(hit.Index, x, y)
	case hittest.TypeVertex:
		return s.Areas.UpdateVertex(hit.Index, x, y)
	}
	return fmt.Errorf("drag %q: unknown object type", hit.Type)
}

// TypePointID stores the raw text of an id field while the user types.
func (s *Session) TypePointID(i int, value string) error {
	_, err := s.Points.UpdateID(i, value, store.UpdateOptions{SkipFormatting: true})
	return err
}

// CommitPointID formats and validates the id when the field is committed. A
// blank id removes the point.
func (s *Session) CommitPointID(i int, value string) (validation.Result, error) {
	return s.Points.UpdateID(i, value, store.UpdateOptions{})
}

// TypeSpotName stores the raw text of a name field while the user types.
func (s *Session) TypeSpotName(i int, value string) error {
	_, err := s.Spots.UpdateName(i, value, store.UpdateOptions{SkipFormatting: true})
	return err
}

// CommitSpotName validates the name when the field is committed. A blank
// name removes the spot.
func (s *Session) CommitSpotName(i int, value string) (validation.Result, error) {
	return s.Spots.UpdateName(i, value, store.UpdateOptions{})
}

// Remove deletes the entity named by hit. Waypoints and vertices are removed
// from the selected route or area.
func (s *Session) Remove(hit hittest.Hit) error {
	if err := s.check(); err != nil {
		return err
	}
	switch hit.Type {
	case hittest.TypePoint:
		return s.Points.RemoveAt(hit.Index)
	case hittest.TypeSpot:
		return s.Spots.RemoveAt(hit.Index)
	case hittest.TypeWaypoint:
		return s.Routes.RemoveWaypointAt(hit.Index)
	case hittest.TypeVertex:
		return s.Areas.RemoveVertexAt(hit.Index)
	}
	return fmt.Errorf("remove %q: unknown object type", hit.Type)
}
