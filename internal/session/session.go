// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package session

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/geometry"
	"github.com/tomtom215/mapmark/internal/hittest"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/store"
	"github.com/tomtom215/mapmark/internal/sync"
)

// ErrClosed is returned by session operations after Close.
var ErrClosed = errors.New("session closed")

// ErrInvalidMode is returned by SetMode for an unknown mode.
var ErrInvalidMode = errors.New("invalid edit mode")

// Config describes the project to open.
type Config struct {
	// Project is the project key, the image file name.
	Project string
	// Image is the original image size.
	Image geometry.Size
	// Canvas is the canvas bitmap size. Defaults to Image.
	Canvas geometry.Size
	// Bounds is the canvas element's on-page box. Defaults to the canvas
	// size at the origin.
	Bounds geometry.Rect
	// User is the opaque user id stamped on remote documents.
	User string
	// Thresholds are the hit radii. Zero means hittest.DefaultThresholds.
	Thresholds hittest.Thresholds
	// PositionTolerance is the delete-by-position tolerance in image pixels.
	PositionTolerance int
	// Live re-applies remote snapshots to the local stores.
	Live bool
	// Pipeline tunes the background sync channel.
	Pipeline sync.PipelineConfig
}

// Session is one open project in the editor. It owns the four entity
// stores, the sync gateway and the pipeline that connects them, and exposes
// the gesture entry points. Open builds everything; Close tears it down and
// drops every remote subscription.
type Session struct {
	Points *store.PointStore
	Spots  *store.SpotStore
	Routes *store.RouteStore
	Areas  *store.AreaStore

	gw       *sync.Gateway
	pipeline *sync.Pipeline
	logger   zerolog.Logger
	cancel   context.CancelFunc

	mu         gosync.Mutex
	mode       hittest.Mode
	view       geometry.View
	bounds     geometry.Rect
	canvas     geometry.Size
	image      geometry.Size
	thresholds hittest.Thresholds
	closed     bool

	// OnPointDuplicate fires when a background point add found an existing
	// remote point. Resolve with OverwritePoint or leave the local point
	// unsynced.
	OnPointDuplicate store.Signal[sync.AddResult[models.Point]]
	// OnSpotDuplicate is OnPointDuplicate for spots.
	OnSpotDuplicate store.Signal[sync.AddResult[models.Spot]]
	// OnModeChange fires after SetMode.
	OnModeChange store.Signal[hittest.Mode]
}

// Open opens a project: it writes the project document, loads all four
// collections into fresh stores, starts the sync pipeline and, with
// cfg.Live, subscribes to remote changes. Errors are returned so the caller
// can retry.
func Open(ctx context.Context, remote docstore.Store, cfg Config) (*Session, error) {
	if !cfg.Canvas.Valid() {
		cfg.Canvas = cfg.Image
	}
	if cfg.Bounds.Width <= 0 || cfg.Bounds.Height <= 0 {
		cfg.Bounds = geometry.Rect{Width: float64(cfg.Canvas.Width), Height: float64(cfg.Canvas.Height)}
	}
	if cfg.Thresholds == (hittest.Thresholds{}) {
		cfg.Thresholds = hittest.DefaultThresholds()
	}

	gw, err := sync.Open(ctx, remote, sync.Options{
		Project:           cfg.Project,
		Image:             cfg.Image,
		Canvas:            cfg.Canvas,
		User:              cfg.User,
		PositionTolerance: cfg.PositionTolerance,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		Points:     store.NewPointStore(),
		Spots:      store.NewSpotStore(),
		Routes:     store.NewRouteStore(),
		Areas:      store.NewAreaStore(),
		gw:         gw,
		logger:     logging.WithComponent("session").With().Str("project", cfg.Project).Logger(),
		mode:       hittest.ModePoint,
		view:       geometry.IdentityView,
		bounds:     cfg.Bounds,
		canvas:     cfg.Canvas,
		image:      cfg.Image,
		thresholds: cfg.Thresholds,
	}

	if err := s.load(ctx); err != nil {
		_ = gw.Close()
		return nil, err
	}

	pipeline, err := sync.NewPipeline(gw, sync.Stores{
		Points: s.Points,
		Spots:  s.Spots,
		Routes: s.Routes,
		Areas:  s.Areas,
	}, cfg.Pipeline)
	if err != nil {
		_ = gw.Close()
		return nil, err
	}
	pipeline.OnPointDuplicate.Connect(s.OnPointDuplicate.Emit)
	pipeline.OnSpotDuplicate.Connect(s.OnSpotDuplicate.Emit)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := pipeline.Start(runCtx); err != nil {
		cancel()
		_ = gw.Close()
		return nil, fmt.Errorf("start sync pipeline: %w", err)
	}
	s.pipeline = pipeline
	s.cancel = cancel

	if cfg.Live {
		if err := s.subscribe(runCtx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.logger.Info().Int("points", s.Points.Len()).Int("spots", s.Spots.Len()).
		Int("routes", s.Routes.Len()).Int("areas", s.Areas.Len()).Msg("Project opened")
	return s, nil
}

// load replaces every store with the remote collections.
func (s *Session) load(ctx context.Context) error {
	points, err := s.gw.Points().Load(ctx)
	if err != nil {
		return err
	}
	spots, err := s.gw.Spots().Load(ctx)
	if err != nil {
		return err
	}
	routes, err := s.gw.Routes().Load(ctx)
	if err != nil {
		return err
	}
	areas, err := s.gw.Areas().Load(ctx)
	if err != nil {
		return err
	}
	s.Points.Replace(points)
	s.Spots.Replace(spots)
	s.Routes.Replace(routes)
	s.Areas.Replace(areas)
	return nil
}

// Reload re-reads every collection from the remote store, discarding local
// state.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.load(ctx)
}

// Gateway returns the session's sync gateway.
func (s *Session) Gateway() *sync.Gateway {
	return s.gw
}

// Close stops the pipeline, drops all remote subscriptions and waits for
// background sync calls to finish.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.pipeline != nil {
		if err := s.pipeline.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.gw.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info().Msg("Project closed")
	return errors.Join(errs...)
}

func (s *Session) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Mode returns the active edit mode.
func (s *Session) Mode() hittest.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the edit mode. Abandoned creations, the trailing run of
// unlabeled entries in every store, are removed first.
func (s *Session) SetMode(m hittest.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%q: %w", m, ErrInvalidMode)
	}
	if err := s.check(); err != nil {
		return err
	}
	s.Points.RemoveTrailingEmpty()
	s.Spots.RemoveTrailingEmpty()
	s.Routes.RemoveTrailingEmpty()
	s.Areas.RemoveTrailingEmpty()

	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	s.OnModeChange.Emit(m)
	return nil
}

// View returns the current zoom and pan.
func (s *Session) View() geometry.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView sets zoom and pan. A non-positive scale resets to 1.
func (s *Session) SetView(v geometry.View) {
	if v.Scale <= 0 {
		v.Scale = 1
	}
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// SetBounds records the canvas element's on-page box after layout.
func (s *Session) SetBounds(r geometry.Rect) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("bounds %.0fx%.0f: %w", r.Width, r.Height, geometry.ErrDegenerateSize)
	}
	s.mu.Lock()
	s.bounds = r
	s.mu.Unlock()
	return nil
}

// Canvas returns the canvas bitmap size.
func (s *Session) Canvas() geometry.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas
}

// Resize rescales every local entity to a new canvas size. Each position is
// re-projected from its image anchor, so repeated resizes do not drift; a
// position moved since it was anchored is converted from canvas first.
// Remote documents are already in image space and are not touched.
func (s *Session) Resize(canvas geometry.Size) error {
	if err := s.check(); err != nil {
		return err
	}
	if !canvas.Valid() {
		return fmt.Errorf("canvas %dx%d: %w", canvas.Width, canvas.Height, geometry.ErrDegenerateSize)
	}

	s.mu.Lock()
	old, image := s.canvas, s.image
	s.mu.Unlock()

	// Sizes were validated, so Rescale cannot fail.
	rescale := func(x, y *int, a *geometry.Anchor) {
		p, anchor, _ := a.Rescale(geometry.Point{X: *x, Y: *y}, old, canvas, image)
		*x, *y, *a = p.X, p.Y, anchor
	}

	points := s.Points.GetAll()
	for i := range points {
		p := &points[i]
		rescale(&p.X, &p.Y, &p.Image)
	}
	spots := s.Spots.GetAll()
	for i := range spots {
		sp := &spots[i]
		rescale(&sp.X, &sp.Y, &sp.Image)
	}
	routes := s.Routes.GetAll()
	for i := range routes {
		for j := range routes[i].Waypoints {
			w := &routes[i].Waypoints[j]
			rescale(&w.X, &w.Y, &w.Image)
		}
	}
	areas := s.Areas.GetAll()
	for i := range areas {
		for j := range areas[i].Vertices {
			v := &areas[i].Vertices[j]
			rescale(&v.X, &v.Y, &v.Image)
		}
	}

	if err := s.gw.SetCanvas(canvas); err != nil {
		return err
	}
	s.mu.Lock()
	s.canvas = canvas
	s.mu.Unlock()

	s.Points.Replace(points)
	s.Spots.Replace(spots)
	s.Routes.Replace(routes)
	s.Areas.Replace(areas)
	return nil
}

// ToCanvas converts a pointer position in page pixels to canvas space using
// the current bounds, canvas size and view.
func (s *Session) ToCanvas(pointer geometry.PointF) (geometry.Point, error) {
	s.mu.Lock()
	bounds, canvas, view := s.bounds, s.canvas, s.view
	s.mu.Unlock()
	return geometry.PointerToCanvas(pointer, bounds, canvas, view)
}

// ToView converts a canvas point to view space for popup placement.
func (s *Session) ToView(p geometry.Point) geometry.PointF {
	return geometry.CanvasToView(p, s.View())
}
