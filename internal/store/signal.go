// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package store

import (
	"slices"
	"sync"
)

// Signal is a typed observer list.
type Signal[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []handler[T]
}

type handler[T any] struct {
	id uint64
	fn func(T)
}

// Connect registers fn and returns a function that removes it.
func (s *Signal[T]) Connect(fn func(T)) (disconnect func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, handler[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.handlers = slices.DeleteFunc(s.handlers, func(h handler[T]) bool { return h.id == id })
			s.mu.Unlock()
		})
	}
}

// Emit calls every handler in registration order.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	hs := slices.Clone(s.handlers)
	s.mu.RUnlock()

	for _, h := range hs {
		h.fn(v)
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
