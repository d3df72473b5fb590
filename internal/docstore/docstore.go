// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/mapmark/internal/metrics"
	"github.com/tomtom215/mapmark/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("document store is closed")

	// ErrInvalidCollection is returned for a malformed collection address.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrUnsupported is returned when a backend cannot serve an operation.
	ErrUnsupported = errors.New("operation not supported")
)

// Store is the capability set the sync gateway needs from a remote document
// store: keyed reads, equality queries, server-assigned inserts, merges,
// deletes, and push subscriptions.
type Store interface {
	// Get returns one document.
	Get(ctx context.Context, c Collection, id string) (Document, error)

	// Set creates the document with the given id or merges fields into it.
	Set(ctx context.Context, c Collection, id string, fields Fields) error

	// Query returns the documents matching every filter, ordered by id.
	Query(ctx context.Context, c Collection, filters ...Filter) ([]Document, error)

	// Add inserts a document and returns its server-assigned id.
	Add(ctx context.Context, c Collection, fields Fields) (string, error)

	// Update merges fields into an existing document. Increment values add
	// to the stored number.
	Update(ctx context.Context, c Collection, id string, fields Fields) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, c Collection, id string) error

	// Subscribe calls l with the current contents of c and again after every
	// change to c. Cancelling ctx has the same effect as Unsubscribe.
	Subscribe(ctx context.Context, c Collection, l Listener) (Subscription, error)

	// Close releases the store and ends every subscription.
	Close() error
}

// Listener receives the full, id-ordered contents of a collection. A
// returned error is logged by the store.
type Listener func(docs []Document) error

// Subscription is a handle on an active listener.
type Subscription interface {
	Unsubscribe()
}

// Document is one stored record.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Collection addresses either the project root collection or one annotation
// sub-collection of a project.
type Collection struct {
	Project string      `json:"project,omitempty"`
	Kind    models.Kind `json:"kind,omitempty"`
}

// Projects is the root collection holding one document per project, keyed
// by image name.
var Projects = Collection{}

// Annotations returns the sub-collection of kind k under project.
func Annotations(project string, k models.Kind) Collection {
	return Collection{Project: project, Kind: k}
}

// IsRoot reports whether c is the project root collection.
func (c Collection) IsRoot() bool {
	return c.Kind == ""
}

// Validate checks that c is either the root or a known kind under a project.
func (c Collection) Validate() error {
	if c.IsRoot() {
		if c.Project != "" {
			return fmt.Errorf("%w: root collection has no project", ErrInvalidCollection)
		}
		return nil
	}
	if c.Project == "" {
		return fmt.Errorf("%w: missing project", ErrInvalidCollection)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCollection, c.Kind)
	}
	return nil
}

// Path renders c as "projects" or "projects/<key>/<kind>".
func (c Collection) Path() string {
	if c.IsRoot() {
		return "projects"
	}
	return "projects/" + url.PathEscape(c.Project) + "/" + string(c.Kind)
}

func (c Collection) String() string {
	return c.Path()
}

// Filter is an equality condition on one field.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Eq returns a filter matching documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Value: v}
}

func observe(backend, op string, start time.Time, err error) {
	metrics.RecordDocstoreOperation(backend, op, time.Since(start), err, errors.Is(err, ErrNotFound))
}
