// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
	"github.com/tomtom215/mapmark/internal/models"
)

var (
	// ErrNoProject is returned when opening a gateway without a project key.
	ErrNoProject = errors.New("no project key")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("gateway closed")

	// ErrIncompleteRoute is returned when saving a route without two distinct
	// endpoints and at least one waypoint.
	ErrIncompleteRoute = errors.New("route is incomplete")

	// ErrAreaNotPersistable is returned when saving an area without a name or
	// with fewer than three vertices.
	ErrAreaNotPersistable = errors.New("area is not persistable")

	// ErrBlankKey is returned when adding a point or spot without an
	// identifier.
	ErrBlankKey = errors.New("entity has no identifier")

	// ErrNoRemoteID is returned by Update and Delete for an entity that was
	// never synced.
	ErrNoRemoteID = errors.New("entity has no remote identity")
)

// DefaultPositionTolerance is how far, in image pixels, DeleteAt looks for a
// document at a position.
const DefaultPositionTolerance = 1

// Options configures a gateway for one project.
type Options struct {
	// Project is the project key, the image file name.
	Project string
	// Image is the original image size. Required.
	Image geometry.Size
	// Canvas is the current canvas size. Defaults to Image.
	Canvas geometry.Size
	// User is the opaque user id stamped on created and updated documents.
	User string
	// PositionTolerance overrides DefaultPositionTolerance when positive.
	PositionTolerance int
	// Logger overrides the default sync logger.
	Logger *logging.SyncLogger
}

// Gateway mirrors local entity edits into a remote document store for one
// open project. Entities passed in and returned are in canvas space; the
// gateway converts to and from image space with the sizes current at call
// time.
//
// A Gateway is created by Open when a project is opened and must be closed
// when the project is closed, which drops every subscription it made.
type Gateway struct {
	store     docstore.Store
	project   string
	user      string
	tolerance int
	log       *logging.SyncLogger

	mu     gosync.Mutex
	image  geometry.Size
	canvas geometry.Size
	closed bool

	subs    map[uint64]docstore.Subscription
	nextSub uint64

	tasks gosync.WaitGroup

	points *Located[models.Point]
	spots  *Located[models.Spot]
	routes *Entities[models.Route]
	areas  *Entities[models.Area]
}

// Open binds a gateway to a project and writes the project document,
// creating it with zero counts if it does not exist yet. Errors are
// returned to the caller.
func Open(ctx context.Context, store docstore.Store, opts Options) (*Gateway, error) {
	if opts.Project == "" {
		return nil, ErrNoProject
	}
	if !opts.Image.Valid() {
		return nil, fmt.Errorf("open project %s: image %dx%d: %w",
			opts.Project, opts.Image.Width, opts.Image.Height, geometry.ErrDegenerateSize)
	}
	if !opts.Canvas.Valid() {
		opts.Canvas = opts.Image
	}
	if opts.PositionTolerance <= 0 {
		opts.PositionTolerance = DefaultPositionTolerance
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewSyncLogger()
	}

	g := &Gateway{
		store:     store,
		project:   opts.Project,
		user:      opts.User,
		tolerance: opts.PositionTolerance,
		log:       log.WithProject(opts.Project),
		image:     opts.Image,
		canvas:    opts.Canvas,
		subs:      make(map[uint64]docstore.Subscription),
	}
	g.points = &Located[models.Point]{Entities: newEntities(g, pointCodec{})}
	g.spots = &Located[models.Spot]{Entities: newEntities(g, spotCodec{})}
	g.routes = newEntities(g, routeCodec{})
	g.areas = newEntities(g, areaCodec{})

	if err := g.writeProject(ctx); err != nil {
		metrics.RecordSyncOperation("open", "project", false, err)
		return nil, err
	}
	metrics.RecordSyncOperation("open", "project", false, nil)
	return g, nil
}

func (g *Gateway) writeProject(ctx context.Context) error {
	now := time.Now().UTC()
	fields := docstore.Fields{
		"imageKey":      g.project,
		"imageWidth":    g.image.Width,
		"imageHeight":   g.image.Height,
		"lastUpdatedBy": g.user,
		"updatedAt":     now,
	}

	_, err := g.store.Get(ctx, docstore.Projects, g.project)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		fields["createdBy"] = g.user
		fields["createdAt"] = now
		for _, k := range models.Kinds {
			fields[models.CountField(k)] = 0
		}
	case err != nil:
		return fmt.Errorf("read project %s: %w", g.project, err)
	}

	if err := g.store.Set(ctx, docstore.Projects, g.project, fields); err != nil {
		return fmt.Errorf("write project %s: %w", g.project, err)
	}
	return nil
}

// ProjectKey returns the key of the open project.
func (g *Gateway) ProjectKey() string {
	return g.project
}

// Project reads the project document.
func (g *Gateway) Project(ctx context.Context) (models.Project, error) {
	if err := g.check(); err != nil {
		return models.Project{}, err
	}
	doc, err := g.store.Get(ctx, docstore.Projects, g.project)
	if err != nil {
		return models.Project{}, fmt.Errorf("read project %s: %w", g.project, err)
	}
	var p models.Project
	if err := doc.Decode(&p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// SetCanvas records a new canvas size after a resize. Later conversions use it.
func (g *Gateway) SetCanvas(canvas geometry.Size) error {
	if !canvas.Valid() {
		return fmt.Errorf("canvas %dx%d: %w", canvas.Width, canvas.Height, geometry.ErrDegenerateSize)
	}
	g.mu.Lock()
	g.canvas = canvas
	g.mu.Unlock()
	return nil
}

// Sizes returns the current canvas and image sizes.
func (g *Gateway) Sizes() (canvas, image geometry.Size) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canvas, g.image
}

func (g *Gateway) toImage(p geometry.Point) (geometry.Point, error) {
	canvas, image := g.Sizes()
	return geometry.CanvasToImage(p, canvas, image)
}

func (g *Gateway) toCanvas(p geometry.Point) (geometry.Point, error) {
	canvas, image := g.Sizes()
	return geometry.ImageToCanvas(p, canvas, image)
}

// imageOf converts canvas point p to image space, preferring its anchor.
func (g *Gateway) imageOf(p geometry.Point, a geometry.Anchor) (geometry.Point, error) {
	canvas, image := g.Sizes()
	return a.ImageOf(p, canvas, image)
}

// projectPoint converts an image-space point to canvas space and anchors the
// result to it.
func (g *Gateway) projectPoint(p geometry.Point) (geometry.Point, geometry.Anchor, error) {
	cp, err := g.toCanvas(p)
	if err != nil {
		return geometry.Point{}, geometry.Anchor{}, err
	}
	return cp, geometry.AnchorAt(p), nil
}

func (g *Gateway) check() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	return nil
}

// Points returns the point operations.
func (g *Gateway) Points() *Located[models.Point] { return g.points }

// Spots returns the spot operations.
func (g *Gateway) Spots() *Located[models.Spot] { return g.spots }

// Routes returns the route operations.
func (g *Gateway) Routes() *Entities[models.Route] { return g.routes }

// Areas returns the area operations.
func (g *Gateway) Areas() *Entities[models.Area] { return g.areas }

// stamp adds audit fields to a document about to be written.
func (g *Gateway) stamp(f docstore.Fields, created bool) {
	now := time.Now().UTC()
	f["lastUpdatedBy"] = g.user
	f["updatedAt"] = now
	if created {
		f["createdBy"] = g.user
		f["createdAt"] = now
	}
}

// adjustCount moves a project counter. Failures are logged and never undo
// the entity write that triggered them.
func (g *Gateway) adjustCount(ctx context.Context, k models.Kind, delta int) {
	field := models.CountField(k)
	err := g.store.Update(ctx, docstore.Projects, g.project, docstore.Fields{
		field:           docstore.Increment(delta),
		"lastUpdatedBy": g.user,
		"updatedAt":     time.Now().UTC(),
	})
	if err != nil {
		metrics.SyncCounterFailures.WithLabelValues(field).Inc()
		g.log.LogCounterFailure(ctx, field, delta, err)
	}
}

// Go runs fn in the background. Its error is logged and counted, never
// returned. Close waits for running tasks.
func (g *Gateway) Go(op string, kind models.Kind, fn func(ctx context.Context) error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.tasks.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.tasks.Done()
		ctx := logging.ContextWithNewCorrelationID(context.Background())
		if err := fn(ctx); err != nil {
			metrics.SyncBackgroundFailures.WithLabelValues(op, string(kind)).Inc()
			g.log.LogBackgroundFailure(ctx, op, string(kind), err)
		}
	}()
}

// Wait blocks until every background task started so far has finished.
func (g *Gateway) Wait() {
	g.tasks.Wait()
}

// track registers a subscription for UnsubscribeAll and returns a handle
// that deregisters itself.
func (g *Gateway) track(sub docstore.Subscription) (docstore.Subscription, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		sub.Unsubscribe()
		return nil, ErrClosed
	}
	g.nextSub++
	id := g.nextSub
	g.subs[id] = sub
	g.mu.Unlock()

	metrics.SyncActiveSubscriptions.Inc()
	return &handle{g: g, id: id}, nil
}

type handle struct {
	g    *Gateway
	id   uint64
	once gosync.Once
}

func (h *handle) Unsubscribe() {
	h.once.Do(func() {
		h.g.mu.Lock()
		sub, ok := h.g.subs[h.id]
		delete(h.g.subs, h.id)
		h.g.mu.Unlock()
		if ok {
			sub.Unsubscribe()
			metrics.SyncActiveSubscriptions.Dec()
		}
	})
}

// Subscriptions returns the number of live subscriptions.
func (g *Gateway) Subscriptions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// UnsubscribeAll drops every subscription made through the gateway.
func (g *Gateway) UnsubscribeAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = make(map[uint64]docstore.Subscription)
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
		metrics.SyncActiveSubscriptions.Dec()
	}
}

// Close drops all subscriptions and waits for background tasks. In-flight
// remote calls are not cancelled. The underlying store is left open.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.UnsubscribeAll()
	g.tasks.Wait()
	return nil
}
