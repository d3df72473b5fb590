// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/logging"
)

var errRemoteDown = errors.New("remote unavailable")

func quietLogger() *logging.SyncLogger {
	return logging.NewSyncLoggerWithLogger(logging.NewTestLogger(io.Discard))
}

// openGateway opens a gateway on a fresh memory store with canvas == image
// unless opts says otherwise.
func openGateway(t *testing.T, s docstore.Store, opts Options) *Gateway {
	t.Helper()
	if s == nil {
		m := docstore.NewMemoryStore()
		t.Cleanup(func() { _ = m.Close() })
		s = m
	}
	if opts.Project == "" {
		opts.Project = "map.png"
	}
	if !opts.Image.Valid() {
		opts.Image = geometry.Size{Width: 1000, Height: 800}
	}
	if opts.User == "" {
		opts.User = "user-1"
	}
	opts.Logger = quietLogger()

	gw, err := Open(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func projectCount(t *testing.T, gw *Gateway, field string) int {
	t.Helper()
	doc, err := gw.store.Get(context.Background(), docstore.Projects, gw.ProjectKey())
	if err != nil {
		t.Fatalf("Get(project) error = %v", err)
	}
	n, _ := doc.Fields[field].(float64)
	return int(n)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// flakyStore wraps a store and fails selected operations.
type flakyStore struct {
	docstore.Store
	failUpdateProjects bool
	failAll            bool
}

func (f *flakyStore) Get(ctx context.Context, c docstore.Collection, id string) (docstore.Document, error) {
	if f.failAll {
		return docstore.Document{}, errRemoteDown
	}
	return f.Store.Get(ctx, c, id)
}

func (f *flakyStore) Query(ctx context.Context, c docstore.Collection, filters ...docstore.Filter) ([]docstore.Document, error) {
	if f.failAll {
		return nil, errRemoteDown
	}
	return f.Store.Query(ctx, c, filters...)
}

func (f *flakyStore) Update(ctx context.Context, c docstore.Collection, id string, fields docstore.Fields) error {
	if f.failAll || (f.failUpdateProjects && c.IsRoot()) {
		return errRemoteDown
	}
	return f.Store.Update(ctx, c, id, fields)
}
