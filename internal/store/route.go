// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import (
	"fmt"
	"slices"

	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/validation"
)

// EndpointSlot reports which route endpoint an entity pick filled.
type EndpointSlot int

const (
	// SlotNone means both endpoints were already set and the pick was ignored.
	SlotNone EndpointSlot = iota
	SlotStart
	SlotEnd
)

func (s EndpointSlot) String() string {
	switch s {
	case SlotStart:
		return "start"
	case SlotEnd:
		return "end"
	}
	return "none"
}

// RouteStore holds the routes of one project with at most one selected.
type RouteStore struct {
	collection[models.Route]
	selected int
	keys     localKeys
}

// NewRouteStore creates an empty store with nothing selected.
func NewRouteStore() *RouteStore {
	return &RouteStore{
		collection: collection[models.Route]{clone: models.Route.Clone},
		selected:   -1,
	}
}

// Create appends an empty route, selects it and returns its index.
func (s *RouteStore) Create() int {
	s.mu.Lock()
	s.items = append(s.items, models.Route{LocalID: s.keys.next()})
	i := len(s.items) - 1
	s.selected = i
	n := s.noticeLocked(Mutation[models.Route]{Op: OpAdd, Index: i})
	s.mu.Unlock()

	n.fire()
	return i
}

// SelectAt makes the route at i the target of subsequent edits.
func (s *RouteStore) SelectAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRangeLocked(i) {
		return fmt.Errorf("select route %d: %w", i, ErrIndexOutOfRange)
	}
	s.selected = i
	return nil
}

// Deselect clears the selection.
func (s *RouteStore) Deselect() {
	s.mu.Lock()
	s.selected = -1
	s.mu.Unlock()
}

// Selected returns the selected route and its index.
func (s *RouteStore) Selected() (models.Route, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRangeLocked(s.selected) {
		return models.Route{}, -1, false
	}
	return s.items[s.selected].Clone(), s.selected, true
}

// DeleteAt removes the route at i. The selection follows the route it
// pointed at, or is cleared if that route was removed.
func (s *RouteStore) DeleteAt(i int) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("delete route %d: %w", i, ErrIndexOutOfRange)
	}
	old := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	s.selected = shiftSelection(s.selected, i)
	n := s.noticeLocked(Mutation[models.Route]{Op: OpRemove, Index: i, Entity: old, Previous: old})
	s.mu.Unlock()

	n.fire()
	return nil
}

// editSelected applies fn to the selected route and emits OpUpdate.
func (s *RouteStore) editSelected(what string, fn func(r *models.Route) error) error {
	s.mu.Lock()
	if !s.inRangeLocked(s.selected) {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", what, ErrNoSelection)
	}
	i := s.selected
	prev := s.items[i].Clone()
	if err := fn(&s.items[i]); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", what, err)
	}
	n := s.noticeLocked(Mutation[models.Route]{Op: OpUpdate, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return nil
}

// AddWaypoint appends a waypoint to the selected route.
func (s *RouteStore) AddWaypoint(x, y float64) error {
	return s.editSelected("add waypoint", func(r *models.Route) error {
		r.Waypoints = append(r.Waypoints, models.Waypoint{X: geometry.Round(x), Y: geometry.Round(y)})
		return nil
	})
}

// RemoveWaypointAt deletes waypoint j of the selected route.
func (s *RouteStore) RemoveWaypointAt(j int) error {
	return s.editSelected("remove waypoint", func(r *models.Route) error {
		if j < 0 || j >= len(r.Waypoints) {
			return ErrIndexOutOfRange
		}
		r.Waypoints = slices.Delete(r.Waypoints, j, j+1)
		return nil
	})
}

// UpdateWaypoint moves waypoint j of the selected route.
func (s *RouteStore) UpdateWaypoint(j int, x, y float64) error {
	return s.editSelected("move waypoint", func(r *models.Route) error {
		if j < 0 || j >= len(r.Waypoints) {
			return ErrIndexOutOfRange
		}
		r.Waypoints[j] = models.Waypoint{X: geometry.Round(x), Y: geometry.Round(y)}
		return nil
	})
}

// SetName renames the selected route.
func (s *RouteStore) SetName(name string) error {
	return s.editSelected("set route name", func(r *models.Route) error {
		r.Name = validation.NormalizeWidth(name)
		return nil
	})
}

// SetEndpoints overwrites both endpoints of the selected route.
func (s *RouteStore) SetEndpoints(start, end string) error {
	return s.editSelected("set route endpoints", func(r *models.Route) error {
		r.StartPointID, r.EndPointID = start, end
		return nil
	})
}

// AssignEndpoint records a picked point id or spot name. The first pick
// fills the start, the second fills the end, and once both are set further
// picks are ignored and SlotNone is returned.
func (s *RouteStore) AssignEndpoint(ref string) (EndpointSlot, error) {
	slot := SlotNone
	err := s.editSelected("assign route endpoint", func(r *models.Route) error {
		switch {
		case r.StartPointID == "":
			r.StartPointID = ref
			slot = SlotStart
		case r.EndPointID == "":
			r.EndPointID = ref
			slot = SlotEnd
		}
		return nil
	})
	return slot, err
}

// ValidateEndpoints checks the selected route against the registered point
// ids and, optionally, spot names.
func (s *RouteStore) ValidateEndpoints(pointIDs, spotNames []string) validation.Result {
	r, _, ok := s.Selected()
	if !ok {
		return validation.Invalid("no route selected")
	}
	return validation.CheckRouteEndpoints(r, pointIDs, spotNames)
}

// SelectedWaypoints returns the waypoint positions of the selected route, or
// nil when nothing is selected.
func (s *RouteStore) SelectedWaypoints() []geometry.Point {
	r, _, ok := s.Selected()
	if !ok {
		return nil
	}
	return r.Positions()
}

// RemoveTrailingEmpty deletes the contiguous run of unlabeled routes at the
// end of the collection and returns how many were removed.
func (s *RouteStore) RemoveTrailingEmpty() int {
	s.mu.Lock()
	muts := s.removeTrailingLocked(models.Route.IsEmpty)
	if len(muts) == 0 {
		s.mu.Unlock()
		return 0
	}
	if s.selected >= len(s.items) {
		s.selected = -1
	}
	n := s.noticeLocked(muts...)
	s.mu.Unlock()

	n.fire()
	return len(muts)
}

// BindRemoteID records the remote identity of the route with the given
// endpoint pair.
func (s *RouteStore) BindRemoteID(start, end, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		r := &s.items[i]
		if r.HasEndpoints() && validation.SamePointID(r.StartPointID, start) && validation.SamePointID(r.EndPointID, end) {
			r.RemoteID = remoteID
			return true
		}
	}
	return false
}

// Replace swaps in a new collection. The selection follows the selected
// route by LocalID, then RemoteID, and is cleared when neither is present.
func (s *RouteStore) Replace(routes []models.Route) {
	s.mu.Lock()
	items := make([]models.Route, len(routes))
	for i, r := range routes {
		items[i] = r.Clone()
	}
	s.selected = routeIdentity.rekey(s.items, items, s.selected, &s.keys)
	s.items = items
	n := s.noticeLocked(Mutation[models.Route]{Op: OpReplace, Index: -1})
	s.mu.Unlock()

	n.fire()
}

func shiftSelection(selected, removed int) int {
	switch {
	case selected == removed:
		return -1
	case selected > removed:
		return selected - 1
	}
	return selected
}
