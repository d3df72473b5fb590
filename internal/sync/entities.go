// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// Status is the outcome of an add.
type Status string

const (
	// StatusAdded means a new document was created.
	StatusAdded Status = "added"
	// StatusDuplicate means a document with the same natural key exists and
	// nothing was written.
	StatusDuplicate Status = "duplicate"
	// StatusUpdated means a rename was written over the entity's own
	// document.
	StatusUpdated Status = "updated"
)

// AddResult is the outcome of Add. For StatusAdded, Attempted carries the new
// RemoteID. For StatusDuplicate, Existing is the stored entity (with its
// RemoteID) and Attempted is the entity that was not written; the caller may
// overwrite with Overwrite or drop the local copy.
type AddResult[T any] struct {
	Status    Status
	RemoteID  string
	Existing  T
	Attempted T
}

// Duplicate reports whether the add hit an existing document.
func (r AddResult[T]) Duplicate() bool {
	return r.Status == StatusDuplicate
}

// Entities runs remote operations for one entity kind of the open project.
type Entities[T any] struct {
	g     *Gateway
	codec codec[T]
	coll  docstore.Collection
}

func newEntities[T any](g *Gateway, c codec[T]) *Entities[T] {
	return &Entities[T]{g: g, codec: c, coll: docstore.Annotations(g.project, c.kind())}
}

// Collection returns the remote collection the entities live in.
func (e *Entities[T]) Collection() docstore.Collection {
	return e.coll
}

func (e *Entities[T]) kindLabel() string {
	return string(e.codec.kind())
}

// Find returns the stored entities with the same natural key as v.
func (e *Entities[T]) Find(ctx context.Context, v T) ([]T, error) {
	if err := e.g.check(); err != nil {
		return nil, err
	}
	filters, _ := e.codec.key(v)
	docs, err := e.g.store.Query(ctx, e.coll, filters...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.coll, err)
	}
	return e.decodeAll(docs)
}

// Add inserts v unless a document with the same natural key exists. A
// duplicate is a result, not an error. On insert the project counter is
// incremented; a counter failure is logged and does not fail the add.
func (e *Entities[T]) Add(ctx context.Context, v T) (res AddResult[T], err error) {
	defer func() {
		metrics.RecordSyncOperation("add", e.kindLabel(), res.Duplicate(), err)
	}()

	if err := e.g.check(); err != nil {
		return AddResult[T]{}, err
	}
	if err := e.codec.check(v); err != nil {
		return AddResult[T]{}, err
	}

	filters, key := e.codec.key(v)
	docs, err := e.g.store.Query(ctx, e.coll, filters...)
	if err != nil {
		return AddResult[T]{}, fmt.Errorf("dedup query %s %s: %w", e.coll, key, err)
	}
	if len(docs) > 0 {
		existing, err := e.codec.decode(e.g, docs[0])
		if err != nil {
			return AddResult[T]{}, err
		}
		e.g.log.LogDuplicate(ctx, e.kindLabel(), key, docs[0].ID)
		return AddResult[T]{Status: StatusDuplicate, RemoteID: docs[0].ID, Existing: existing, Attempted: v}, nil
	}

	fields, err := e.codec.encode(e.g, v)
	if err != nil {
		return AddResult[T]{}, err
	}
	e.g.stamp(fields, true)
	id, err := e.g.store.Add(ctx, e.coll, fields)
	if err != nil {
		return AddResult[T]{}, fmt.Errorf("add to %s: %w", e.coll, err)
	}
	e.g.log.LogWrite(ctx, "add", e.kindLabel(), id)
	e.g.adjustCount(ctx, e.codec.kind(), 1)

	return AddResult[T]{Status: StatusAdded, RemoteID: id, Attempted: e.codec.withRemoteID(v, id)}, nil
}

// Update writes v over the document named by its RemoteID.
func (e *Entities[T]) Update(ctx context.Context, v T) (err error) {
	defer func() {
		metrics.RecordSyncOperation("update", e.kindLabel(), false, err)
	}()

	if err := e.g.check(); err != nil {
		return err
	}
	id := e.codec.remoteID(v)
	if id == "" {
		return ErrNoRemoteID
	}
	fields, err := e.codec.encode(e.g, v)
	if err != nil {
		return err
	}
	e.g.stamp(fields, false)
	if err := e.g.store.Update(ctx, e.coll, id, fields); err != nil {
		return fmt.Errorf("update %s/%s: %w", e.coll, id, err)
	}
	e.g.log.LogWrite(ctx, "update", e.kindLabel(), id)
	return nil
}

// Rename writes a renamed, already synced v unless another document holds
// its new natural key. A collision is reported like a duplicate add: nothing
// is written and Attempted keeps v's own RemoteID.
func (e *Entities[T]) Rename(ctx context.Context, v T) (res AddResult[T], err error) {
	defer func() {
		metrics.RecordSyncOperation("rename", e.kindLabel(), res.Duplicate(), err)
	}()

	if err := e.g.check(); err != nil {
		return AddResult[T]{}, err
	}
	id := e.codec.remoteID(v)
	if id == "" {
		return AddResult[T]{}, ErrNoRemoteID
	}
	if err := e.codec.check(v); err != nil {
		return AddResult[T]{}, err
	}

	filters, key := e.codec.key(v)
	docs, err := e.g.store.Query(ctx, e.coll, filters...)
	if err != nil {
		return AddResult[T]{}, fmt.Errorf("dedup query %s %s: %w", e.coll, key, err)
	}
	for _, d := range docs {
		if d.ID == id {
			continue
		}
		existing, err := e.codec.decode(e.g, d)
		if err != nil {
			return AddResult[T]{}, err
		}
		e.g.log.LogDuplicate(ctx, e.kindLabel(), key, d.ID)
		return AddResult[T]{Status: StatusDuplicate, RemoteID: d.ID, Existing: existing, Attempted: v}, nil
	}

	if err := e.Update(ctx, v); err != nil {
		return AddResult[T]{}, err
	}
	return AddResult[T]{Status: StatusUpdated, RemoteID: id, Attempted: v}, nil
}

// Overwrite resolves a duplicate by writing the attempted entity over the
// existing document. It returns the attempted entity bound to the existing
// RemoteID. A renamed entity's own document is deleted, since the existing
// one now holds it.
func (e *Entities[T]) Overwrite(ctx context.Context, res AddResult[T]) (T, error) {
	if !res.Duplicate() {
		return res.Attempted, nil
	}
	var zero T
	own := e.codec.remoteID(res.Attempted)
	v := e.codec.withRemoteID(res.Attempted, res.RemoteID)
	if err := e.Update(ctx, v); err != nil {
		return zero, err
	}
	if own != "" && own != res.RemoteID {
		if err := e.deleteID(ctx, own); err != nil {
			return zero, err
		}
	}
	return v, nil
}

// Delete removes the document named by v's RemoteID and decrements the
// project counter. Deleting a document that is already gone is not an error
// and leaves the counter alone.
func (e *Entities[T]) Delete(ctx context.Context, v T) (err error) {
	defer func() {
		metrics.RecordSyncOperation("delete", e.kindLabel(), false, err)
	}()

	if err := e.g.check(); err != nil {
		return err
	}
	id := e.codec.remoteID(v)
	if id == "" {
		return ErrNoRemoteID
	}
	return e.deleteID(ctx, id)
}

func (e *Entities[T]) deleteID(ctx context.Context, id string) error {
	if _, err := e.g.store.Get(ctx, e.coll, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read %s/%s: %w", e.coll, id, err)
	}
	if err := e.g.store.Delete(ctx, e.coll, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", e.coll, id, err)
	}
	e.g.log.LogWrite(ctx, "delete", e.kindLabel(), id)
	e.g.adjustCount(ctx, e.codec.kind(), -1)
	return nil
}

// Load reads every stored entity, converted to canvas space, in creation
// order.
func (e *Entities[T]) Load(ctx context.Context) (out []T, err error) {
	defer func() {
		metrics.RecordSyncOperation("load", e.kindLabel(), false, err)
	}()

	if err := e.g.check(); err != nil {
		return nil, err
	}
	docs, err := e.g.store.Query(ctx, e.coll)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", e.coll, err)
	}
	return e.decodeAll(docs)
}

func (e *Entities[T]) decodeAll(docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := e.codec.decode(e.g, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Subscribe calls fn with the full collection now and after every remote
// change, including this client's own writes. Errors from fn and from
// decoding are logged, never returned. The handle is tracked by the gateway
// and dropped by UnsubscribeAll and Close.
func (e *Entities[T]) Subscribe(ctx context.Context, fn func([]T) error) (docstore.Subscription, error) {
	if err := e.g.check(); err != nil {
		return nil, err
	}
	listener := func(docs []docstore.Document) error {
		vs, err := e.decodeAll(docs)
		if err == nil {
			err = fn(vs)
		}
		if err != nil {
			e.g.log.LogListenerError(ctx, e.kindLabel(), err)
		}
		return nil
	}
	sub, err := e.g.store.Subscribe(ctx, e.coll, listener)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", e.coll, err)
	}
	return e.g.track(sub)
}

// Located adds position lookups for kinds stored at a single point.
type Located[T any] struct {
	*Entities[T]
}

// FindAt returns the first stored entity within the position tolerance of
// at, a canvas-space point. The comparison is made in image space.
func (l *Located[T]) FindAt(ctx context.Context, at geometry.Point) (T, bool, error) {
	var zero T
	if err := l.g.check(); err != nil {
		return zero, false, err
	}
	target, err := l.g.toImage(at)
	if err != nil {
		return zero, false, err
	}
	docs, err := l.g.store.Query(ctx, l.coll)
	if err != nil {
		return zero, false, fmt.Errorf("query %s: %w", l.coll, err)
	}
	for _, d := range docs {
		x, okX := d.Fields["x"].(float64)
		y, okY := d.Fields["y"].(float64)
		if !okX || !okY {
			continue
		}
		if abs(int(x)-target.X) <= l.g.tolerance && abs(int(y)-target.Y) <= l.g.tolerance {
			v, err := l.codec.decode(l.g, d)
			if err != nil {
				return zero, false, err
			}
			return v, true, nil
		}
	}
	return zero, false, nil
}

// DeleteAt deletes the first stored entity within the position tolerance
// of at, a canvas-space point, and reports whether one was found. It backs
// moves of entities whose RemoteID is not known: delete the old position,
// then add at the new one.
func (l *Located[T]) DeleteAt(ctx context.Context, at geometry.Point) (found bool, err error) {
	defer func() {
		metrics.RecordSyncOperation("delete_at", l.kindLabel(), false, err)
	}()

	v, ok, err := l.FindAt(ctx, at)
	if err != nil || !ok {
		return false, err
	}
	if err := l.deleteID(ctx, l.codec.remoteID(v)); err != nil {
		return false, err
	}
	return true, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
