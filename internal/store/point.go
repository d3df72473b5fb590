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

// PointStore holds the labeled points of one project.
type PointStore struct {
	collection[models.Point]
	onCount Signal[int]
}

// NewPointStore creates an empty store.
func NewPointStore() *PointStore {
	return &PointStore{}
}

func pointLabeled(p models.Point) bool {
	return !p.IsMarker && p.ID != ""
}

func pointBlank(p models.Point) bool {
	return !p.IsMarker && p.ID == ""
}

func (s *PointStore) countLocked() int {
	n := 0
	for _, p := range s.items {
		if pointLabeled(p) {
			n++
		}
	}
	return n
}

func (s *PointStore) noticeLocked(muts ...Mutation[models.Point]) notice[models.Point] {
	n := s.collection.noticeLocked(muts...)
	count := s.countLocked()
	n.after = func() { s.onCount.Emit(count) }
	return n
}

// OnCountChange registers fn to receive the number of labeled, non-marker
// points after each mutation.
func (s *PointStore) OnCountChange(fn func(int)) (disconnect func()) {
	return s.onCount.Connect(fn)
}

// Count returns the number of labeled, non-marker points.
func (s *PointStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

// Add appends p and returns its index. Non-empty ids are stored as given;
// use UpdateID to commit a typed id.
func (s *PointStore) Add(p models.Point) int {
	s.mu.Lock()
	s.items = append(s.items, p)
	i := len(s.items) - 1
	n := s.noticeLocked(Mutation[models.Point]{Op: OpAdd, Index: i, Entity: p, Previous: p})
	s.mu.Unlock()

	n.fire()
	return i
}

// RemoveAt deletes the point at i.
func (s *PointStore) RemoveAt(i int) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("remove point %d: %w", i, ErrIndexOutOfRange)
	}
	old := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	n := s.noticeLocked(Mutation[models.Point]{Op: OpRemove, Index: i, Entity: old, Previous: old})
	s.mu.Unlock()

	n.fire()
	return nil
}

// UpdateGeometry moves the point at i to (x, y), rounded to whole pixels.
func (s *PointStore) UpdateGeometry(i int, x, y float64) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("move point %d: %w", i, ErrIndexOutOfRange)
	}
	if s.items[i].IsMarker {
		s.mu.Unlock()
		return fmt.Errorf("move point %d: %w", i, ErrReadOnly)
	}
	prev := s.items[i]
	s.items[i].X, s.items[i].Y = geometry.Round(x), geometry.Round(y)
	n := s.noticeLocked(Mutation[models.Point]{Op: OpMove, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return nil
}

// UpdateID edits the id of the point at i.
//
// With SkipFormatting the raw value is stored as typed. Otherwise the value
// is canonicalized with validation.FormatPointID: a blank result removes the
// point, a collision with another point is rejected and the raw value is
// kept so the user can correct it.
func (s *PointStore) UpdateID(i int, value string, opts UpdateOptions) (validation.Result, error) {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return validation.Result{}, fmt.Errorf("update point id %d: %w", i, ErrIndexOutOfRange)
	}
	if s.items[i].IsMarker {
		s.mu.Unlock()
		return validation.Result{}, fmt.Errorf("update point id %d: %w", i, ErrReadOnly)
	}

	prev := s.items[i]

	if opts.SkipFormatting {
		s.items[i].ID = value
		n := s.noticeLocked()
		s.mu.Unlock()
		n.fire()
		return validation.Valid(), nil
	}

	id := validation.FormatPointID(value)
	if id == "" {
		s.items = slices.Delete(s.items, i, i+1)
		n := s.noticeLocked(Mutation[models.Point]{Op: OpRemove, Index: i, Entity: prev, Previous: prev})
		s.mu.Unlock()
		n.fire()
		return validation.Valid(), nil
	}

	if res := validation.CheckPointID(s.items, id, i); !res.IsValid {
		s.items[i].ID = value
		n := s.noticeLocked()
		s.mu.Unlock()
		n.fire()
		return res, nil
	}

	s.items[i].ID = id
	n := s.noticeLocked(Mutation[models.Point]{Op: OpRename, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return validation.Valid(), nil
}

// RemoveTrailingEmpty deletes the contiguous run of blank-id, non-marker
// points at the end of the collection and returns how many were removed.
func (s *PointStore) RemoveTrailingEmpty() int {
	s.mu.Lock()
	muts := s.removeTrailingLocked(pointBlank)
	if len(muts) == 0 {
		s.mu.Unlock()
		return 0
	}
	n := s.noticeLocked(muts...)
	s.mu.Unlock()

	n.fire()
	return len(muts)
}

// IDs returns the non-empty point ids in collection order.
func (s *PointStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.items))
	for _, p := range s.items {
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Positions returns every point position in collection order.
func (s *PointStore) Positions() []geometry.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geometry.Point, len(s.items))
	for i, p := range s.items {
		out[i] = p.Position()
	}
	return out
}

// BindRemoteID records the remote identity of the point whose id is id. It
// reports whether a point was found. No signals fire.
func (s *PointStore) BindRemoteID(id, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := validation.FormatPointID(id)
	for i := range s.items {
		if s.items[i].ID != "" && validation.FormatPointID(s.items[i].ID) == key {
			s.items[i].RemoteID = remoteID
			return true
		}
	}
	return false
}

// Replace swaps in a new collection, as after a load or remote snapshot.
func (s *PointStore) Replace(points []models.Point) {
	s.mu.Lock()
	s.items = slices.Clone(points)
	n := s.noticeLocked(Mutation[models.Point]{Op: OpReplace, Index: -1})
	s.mu.Unlock()

	n.fire()
}
