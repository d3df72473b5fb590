// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const backendMemory = "memory"

// MemoryStore keeps documents in process memory. It backs tests and the
// single-process editor.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]Fields
	hub    *hub
	closed bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]Fields),
		hub:  newHub(backendMemory),
	}
}

var _ Store = (*MemoryStore)(nil)

// snapshotLocked must be called with mu held.
func (m *MemoryStore) snapshotLocked(c Collection, filters []Filter) []Document {
	coll := m.docs[c.Path()]
	out := make([]Document, 0, len(coll))
	for id, f := range coll {
		if matches(f, filters) {
			out = append(out, Document{ID: id, Fields: f.Clone()})
		}
	}
	sortDocuments(out)
	return out
}

// commitLocked stores f and notifies listeners. mu must be held for writing.
func (m *MemoryStore) commitLocked(c Collection, id string, f Fields) {
	path := c.Path()
	if m.docs[path] == nil {
		m.docs[path] = make(map[string]Fields)
	}
	if f == nil {
		delete(m.docs[path], id)
	} else {
		m.docs[path][id] = f
	}
	if m.hub.watching(c) {
		m.hub.publish(c, m.snapshotLocked(c, nil))
	}
}

func (m *MemoryStore) check(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, c Collection, id string) (doc Document, err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "get", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return Document{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	f, ok := m.docs[c.Path()][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	return Document{ID: id, Fields: f.Clone()}, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, c Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "set", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.commitLocked(c, id, merge(m.docs[c.Path()][id], patch))
	return nil
}

// Query implements Store.
func (m *MemoryStore) Query(ctx context.Context, c Collection, filters ...Filter) (docs []Document, err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "query", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return nil, err
	}
	filters, err = normalizeFilters(filters)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.snapshotLocked(c, filters), nil
}

// Add implements Store.
func (m *MemoryStore) Add(ctx context.Context, c Collection, fields Fields) (id string, err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "add", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return "", err
	}
	f, err := normalize(fields)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	id = uuid.Must(uuid.NewV7()).String()
	m.commitLocked(c, id, merge(nil, f))
	return id, nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, c Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "update", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	cur, ok := m.docs[c.Path()][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	m.commitLocked(c, id, merge(cur, patch))
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, c Collection, id string) (err error) {
	start := time.Now()
	defer func() { observe(backendMemory, "delete", start, err) }()
	if err = m.check(ctx, c); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.docs[c.Path()][id]; !ok {
		return nil
	}
	m.commitLocked(c, id, nil)
	return nil
}

// Subscribe implements Store.
func (m *MemoryStore) Subscribe(ctx context.Context, c Collection, l Listener) (Subscription, error) {
	if err := m.check(ctx, c); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	sub, err := m.hub.register(ctx, c, l, m.snapshotLocked(c, nil))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.hub.close()
	return nil
}
