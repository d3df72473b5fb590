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

// AreaStore holds the polygon areas of one project with at most one
// selected. Vertex inserts and removals re-sort the polygon by angle around
// its centroid; moving a vertex does not.
type AreaStore struct {
	collection[models.Area]
	selected int
	keys     localKeys
}

// NewAreaStore creates an empty store with nothing selected.
func NewAreaStore() *AreaStore {
	return &AreaStore{
		collection: collection[models.Area]{clone: models.Area.Clone},
		selected:   -1,
	}
}

// Create appends an empty area, selects it and returns its index.
func (s *AreaStore) Create() int {
	s.mu.Lock()
	s.items = append(s.items, models.Area{LocalID: s.keys.next()})
	i := len(s.items) - 1
	s.selected = i
	n := s.noticeLocked(Mutation[models.Area]{Op: OpAdd, Index: i})
	s.mu.Unlock()

	n.fire()
	return i
}

// SelectAt makes the area at i the target of subsequent edits.
func (s *AreaStore) SelectAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRangeLocked(i) {
		return fmt.Errorf("select area %d: %w", i, ErrIndexOutOfRange)
	}
	s.selected = i
	return nil
}

// Deselect clears the selection.
func (s *AreaStore) Deselect() {
	s.mu.Lock()
	s.selected = -1
	s.mu.Unlock()
}

// Selected returns the selected area and its index.
func (s *AreaStore) Selected() (models.Area, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRangeLocked(s.selected) {
		return models.Area{}, -1, false
	}
	return s.items[s.selected].Clone(), s.selected, true
}

// DeleteAt removes the area at i.
func (s *AreaStore) DeleteAt(i int) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("delete area %d: %w", i, ErrIndexOutOfRange)
	}
	old := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	s.selected = shiftSelection(s.selected, i)
	n := s.noticeLocked(Mutation[models.Area]{Op: OpRemove, Index: i, Entity: old, Previous: old})
	s.mu.Unlock()

	n.fire()
	return nil
}

func (s *AreaStore) editSelected(what string, fn func(a *models.Area) error) error {
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
	s.items[i].IsModified = s.items[i].Persistable()
	n := s.noticeLocked(Mutation[models.Area]{Op: OpUpdate, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return nil
}

func reorder(a *models.Area) {
	a.Vertices = models.ReorderVertices(a.Vertices)
}

// AddVertex inserts a vertex into the selected area and re-sorts it.
func (s *AreaStore) AddVertex(x, y float64) error {
	return s.editSelected("add vertex", func(a *models.Area) error {
		a.Vertices = append(a.Vertices, models.Vertex{X: geometry.Round(x), Y: geometry.Round(y)})
		reorder(a)
		return nil
	})
}

// RemoveVertexAt deletes vertex j of the selected area and re-sorts it.
func (s *AreaStore) RemoveVertexAt(j int) error {
	return s.editSelected("remove vertex", func(a *models.Area) error {
		if j < 0 || j >= len(a.Vertices) {
			return ErrIndexOutOfRange
		}
		a.Vertices = slices.Delete(a.Vertices, j, j+1)
		reorder(a)
		return nil
	})
}

// UpdateVertex moves vertex j of the selected area in place.
func (s *AreaStore) UpdateVertex(j int, x, y float64) error {
	return s.editSelected("move vertex", func(a *models.Area) error {
		if j < 0 || j >= len(a.Vertices) {
			return ErrIndexOutOfRange
		}
		a.Vertices[j] = models.Vertex{X: geometry.Round(x), Y: geometry.Round(y)}
		return nil
	})
}

// SetName renames the selected area.
func (s *AreaStore) SetName(name string) error {
	return s.editSelected("set area name", func(a *models.Area) error {
		a.Name = validation.NormalizeWidth(name)
		return nil
	})
}

// Validate checks that the selected area can be persisted.
func (s *AreaStore) Validate() validation.Result {
	a, _, ok := s.Selected()
	if !ok {
		return validation.Invalid("no area selected")
	}
	return validation.CheckArea(a)
}

// SelectedVertices returns the vertex positions of the selected area, or nil
// when nothing is selected.
func (s *AreaStore) SelectedVertices() []geometry.Point {
	a, _, ok := s.Selected()
	if !ok {
		return nil
	}
	return a.Positions()
}

// RemoveTrailingEmpty deletes the contiguous run of unnamed areas at the end
// of the collection and returns how many were removed.
func (s *AreaStore) RemoveTrailingEmpty() int {
	s.mu.Lock()
	muts := s.removeTrailingLocked(func(a models.Area) bool { return a.Name == "" })
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

// BindRemoteID records the remote identity of the area named name.
func (s *AreaStore) BindRemoteID(name, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Name != "" && s.items[i].Name == name {
			s.items[i].RemoteID = remoteID
			return true
		}
	}
	return false
}

// Replace swaps in a new collection. IsModified is recomputed and the
// selection follows the selected area as RouteStore.Replace does.
func (s *AreaStore) Replace(areas []models.Area) {
	s.mu.Lock()
	items := make([]models.Area, len(areas))
	for i, a := range areas {
		a = a.Clone()
		a.IsModified = a.Persistable()
		items[i] = a
	}
	s.selected = areaIdentity.rekey(s.items, items, s.selected, &s.keys)
	s.items = items
	n := s.noticeLocked(Mutation[models.Area]{Op: OpReplace, Index: -1})
	s.mu.Unlock()

	n.fire()
}
