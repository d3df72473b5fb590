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

// SpotStore holds the named spots of one project.
type SpotStore struct {
	collection[models.Spot]
	onCount Signal[int]
}

// NewSpotStore creates an empty store.
func NewSpotStore() *SpotStore {
	return &SpotStore{}
}

func spotBlank(s models.Spot) bool {
	return s.Name == ""
}

func (s *SpotStore) countLocked() int {
	n := 0
	for _, sp := range s.items {
		if !spotBlank(sp) {
			n++
		}
	}
	return n
}

func (s *SpotStore) noticeLocked(muts ...Mutation[models.Spot]) notice[models.Spot] {
	n := s.collection.noticeLocked(muts...)
	count := s.countLocked()
	n.after = func() { s.onCount.Emit(count) }
	return n
}

// OnCountChange registers fn to receive the number of named spots after
// each mutation.
func (s *SpotStore) OnCountChange(fn func(int)) (disconnect func()) {
	return s.onCount.Connect(fn)
}

// Count returns the number of named spots.
func (s *SpotStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

// Add appends sp and returns its index.
func (s *SpotStore) Add(sp models.Spot) int {
	s.mu.Lock()
	s.items = append(s.items, sp)
	i := len(s.items) - 1
	n := s.noticeLocked(Mutation[models.Spot]{Op: OpAdd, Index: i, Entity: sp, Previous: sp})
	s.mu.Unlock()

	n.fire()
	return i
}

// RemoveAt deletes the spot at i.
func (s *SpotStore) RemoveAt(i int) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("remove spot %d: %w", i, ErrIndexOutOfRange)
	}
	old := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	n := s.noticeLocked(Mutation[models.Spot]{Op: OpRemove, Index: i, Entity: old, Previous: old})
	s.mu.Unlock()

	n.fire()
	return nil
}

// UpdateGeometry moves the spot at i to (x, y), rounded to whole pixels.
func (s *SpotStore) UpdateGeometry(i int, x, y float64) error {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return fmt.Errorf("move spot %d: %w", i, ErrIndexOutOfRange)
	}
	prev := s.items[i]
	s.items[i].X, s.items[i].Y = geometry.Round(x), geometry.Round(y)
	n := s.noticeLocked(Mutation[models.Spot]{Op: OpMove, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return nil
}

// UpdateName edits the name of the spot at i. Committed names are
// width-normalized; a blank name removes the spot, and an over-long or
// colliding name is rejected with the raw value kept.
func (s *SpotStore) UpdateName(i int, value string, opts UpdateOptions) (validation.Result, error) {
	s.mu.Lock()
	if !s.inRangeLocked(i) {
		s.mu.Unlock()
		return validation.Result{}, fmt.Errorf("update spot name %d: %w", i, ErrIndexOutOfRange)
	}

	prev := s.items[i]

	if opts.SkipFormatting {
		s.items[i].Name = value
		n := s.noticeLocked()
		s.mu.Unlock()
		n.fire()
		return validation.Valid(), nil
	}

	name := validation.NormalizeSpotName(value)
	if name == "" {
		s.items = slices.Delete(s.items, i, i+1)
		n := s.noticeLocked(Mutation[models.Spot]{Op: OpRemove, Index: i, Entity: prev, Previous: prev})
		s.mu.Unlock()
		n.fire()
		return validation.Valid(), nil
	}

	if res := validation.CheckSpot(s.items, name, i); !res.IsValid {
		s.items[i].Name = value
		n := s.noticeLocked()
		s.mu.Unlock()
		n.fire()
		return res, nil
	}

	s.items[i].Name = name
	n := s.noticeLocked(Mutation[models.Spot]{Op: OpRename, Index: i, Entity: s.items[i], Previous: prev})
	s.mu.Unlock()

	n.fire()
	return validation.Valid(), nil
}

// RemoveTrailingEmpty deletes the contiguous run of unnamed spots at the end
// of the collection and returns how many were removed.
func (s *SpotStore) RemoveTrailingEmpty() int {
	s.mu.Lock()
	muts := s.removeTrailingLocked(spotBlank)
	if len(muts) == 0 {
		s.mu.Unlock()
		return 0
	}
	n := s.noticeLocked(muts...)
	s.mu.Unlock()

	n.fire()
	return len(muts)
}

// Names returns the non-empty spot names in collection order.
func (s *SpotStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.items))
	for _, sp := range s.items {
		if sp.Name != "" {
			names = append(names, sp.Name)
		}
	}
	return names
}

// Positions returns every spot position in collection order.
func (s *SpotStore) Positions() []geometry.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geometry.Point, len(s.items))
	for i, sp := range s.items {
		out[i] = sp.Position()
	}
	return out
}

// BindRemoteID records the remote identity of the spot named name.
func (s *SpotStore) BindRemoteID(name, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Name != "" && validation.SameSpotName(s.items[i].Name, name) {
			s.items[i].RemoteID = remoteID
			return true
		}
	}
	return false
}

// Replace swaps in a new collection.
func (s *SpotStore) Replace(spots []models.Spot) {
	s.mu.Lock()
	s.items = slices.Clone(spots)
	n := s.noticeLocked(Mutation[models.Spot]{Op: OpReplace, Index: -1})
	s.mu.Unlock()

	n.fire()
}
