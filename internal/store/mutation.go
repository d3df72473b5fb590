// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import (
	"errors"
	"slices"
	"sync"
)

var (
	// ErrNoSelection is returned by route and area operations when no
	// collection is selected.
	ErrNoSelection = errors.New("no collection selected")

	// ErrIndexOutOfRange is returned for an index outside the collection.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrReadOnly is returned when editing an imported marker.
	ErrReadOnly = errors.New("entity is read-only")
)

// Op is the kind of change a Mutation records.
type Op string

const (
	// OpAdd appends a new entity.
	OpAdd Op = "add"
	// OpMove changes an entity's geometry.
	OpMove Op = "move"
	// OpRename commits a new identifier.
	OpRename Op = "rename"
	// OpUpdate changes a route or area other than by renaming.
	OpUpdate Op = "update"
	// OpRemove deletes an entity.
	OpRemove Op = "remove"
	// OpReplace swaps the whole collection, as on load.
	OpReplace Op = "replace"
)

// Mutation describes one change. Previous is the entity before the change;
// for OpAdd it equals Entity and for OpReplace both are zero.
type Mutation[T any] struct {
	Op       Op
	Index    int
	Entity   T
	Previous T
}

// UpdateOptions controls identifier edits.
type UpdateOptions struct {
	// SkipFormatting stores the raw value without canonicalizing,
	// validating or removing blank entries. Used for live typing.
	SkipFormatting bool
}

// collection is the shared core of every store.
type collection[T any] struct {
	mu    sync.Mutex
	items []T
	clone func(T) T

	onChange   Signal[[]T]
	onMutation Signal[Mutation[T]]
}

// notice is a pending notification assembled under the lock and fired after
// it is released.
type notice[T any] struct {
	c        *collection[T]
	snapshot []T
	muts     []Mutation[T]
	after    func()
}

func (c *collection[T]) snapshotLocked() []T {
	out := make([]T, len(c.items))
	for i, it := range c.items {
		out[i] = c.copy(it)
	}
	return out
}

func (c *collection[T]) copy(v T) T {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

func (c *collection[T]) inRangeLocked(i int) bool {
	return i >= 0 && i < len(c.items)
}

func (c *collection[T]) noticeLocked(muts ...Mutation[T]) notice[T] {
	for i := range muts {
		muts[i].Entity = c.copy(muts[i].Entity)
		muts[i].Previous = c.copy(muts[i].Previous)
	}
	return notice[T]{c: c, snapshot: c.snapshotLocked(), muts: muts}
}

func (n notice[T]) fire() {
	n.c.onChange.Emit(n.snapshot)
	if n.after != nil {
		n.after()
	}
	for _, m := range n.muts {
		n.c.onMutation.Emit(m)
	}
}

// GetAll returns a copy of the collection in render order.
func (c *collection[T]) GetAll() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Get returns the entity at i.
func (c *collection[T]) Get(i int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inRangeLocked(i) {
		var zero T
		return zero, false
	}
	return c.copy(c.items[i]), true
}

// Len returns the number of entities, labeled or not.
func (c *collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// OnChange registers fn to receive the full collection after each mutation.
func (c *collection[T]) OnChange(fn func([]T)) (disconnect func()) {
	return c.onChange.Connect(fn)
}

// OnMutation registers fn to receive each mutation.
func (c *collection[T]) OnMutation(fn func(Mutation[T])) (disconnect func()) {
	return c.onMutation.Connect(fn)
}

// trailingRunLocked returns the start of the contiguous run of entries at
// the end of the collection for which empty reports true.
func (c *collection[T]) trailingRunLocked(empty func(T) bool) int {
	i := len(c.items)
	for i > 0 && empty(c.items[i-1]) {
		i--
	}
	return i
}

// removeTrailingLocked drops the trailing empty run and returns the removal
// mutations, last entry first.
func (c *collection[T]) removeTrailingLocked(empty func(T) bool) []Mutation[T] {
	start := c.trailingRunLocked(empty)
	var muts []Mutation[T]
	for i := len(c.items) - 1; i >= start; i-- {
		muts = append(muts, Mutation[T]{Op: OpRemove, Index: i, Entity: c.items[i], Previous: c.items[i]})
	}
	c.items = slices.Delete(c.items, start, len(c.items))
	return muts
}
