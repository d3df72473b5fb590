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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
	"github.com/tomtom215/mapmark/internal/models"
	"github.com/tomtom215/mapmark/internal/store"
	"github.com/tomtom215/mapmark/internal/validation"
)

// Stores are the local collections a Pipeline mirrors.
type Stores struct {
	Points *store.PointStore
	Spots  *store.SpotStore
	Routes *store.RouteStore
	Areas  *store.AreaStore
}

// PipelineConfig tunes the mutation channel.
type PipelineConfig struct {
	// Buffer is the per-subscriber channel buffer.
	Buffer int64
	// CloseTimeout bounds how long Close waits for in-flight handlers.
	CloseTimeout time.Duration
	// Logger receives watermill's own logs. Defaults to the global logger.
	Logger watermill.LoggerAdapter
}

// DefaultPipelineConfig returns a 256 message buffer and a 10 second close
// timeout.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{Buffer: 256, CloseTimeout: 10 * time.Second}
}

const topicPrefix = "mutations."

func topicFor(k models.Kind) string {
	return topicPrefix + string(k)
}

// envelope is the wire form of a store mutation. RemoteID travels
// separately because entities do not serialize it.
type envelope[T any] struct {
	Op       store.Op `json:"op"`
	Index    int      `json:"index"`
	Entity   T        `json:"entity"`
	Previous T        `json:"previous"`
	RemoteID string   `json:"remoteId,omitempty"`
}

// Pipeline connects local store mutations to the gateway. Stores emit
// mutations synchronously; the pipeline publishes them on an in-process
// channel and a consumer starts one background gateway call per mutation.
// Local state is never rolled back and callers never wait.
//
// Points and spots are added, moved, renamed and removed in the background.
// Routes and areas are added explicitly by the caller (a user-initiated
// save); afterwards edits and removals of synced ones follow here.
type Pipeline struct {
	gw     *Gateway
	stores Stores
	config PipelineConfig
	logger watermill.LoggerAdapter

	pubsub *gochannel.GoChannel
	router *message.Router

	mu          gosync.Mutex
	disconnects []func()
	started     bool
	closed      bool

	// OnPointDuplicate fires when a background point add or rename found
	// another document with the same id. Nothing is written and the local
	// point keeps its binding until the caller resolves it.
	OnPointDuplicate store.Signal[AddResult[models.Point]]
	// OnSpotDuplicate is OnPointDuplicate for spots.
	OnSpotDuplicate store.Signal[AddResult[models.Spot]]
}

// NewPipeline creates a pipeline for gw and stores. Call Start to connect it.
func NewPipeline(gw *Gateway, stores Stores, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultPipelineConfig().Buffer
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultPipelineConfig().CloseTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create pipeline router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	p := &Pipeline{
		gw:     gw,
		stores: stores,
		config: cfg,
		logger: logger,
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.Buffer}, logger),
		router: router,
	}

	if stores.Points != nil {
		addConsumer(p, models.KindPoints, p.handlePoint)
	}
	if stores.Spots != nil {
		addConsumer(p, models.KindSpots, p.handleSpot)
	}
	if stores.Routes != nil {
		addConsumer(p, models.KindRoutes, p.handleRoute)
	}
	if stores.Areas != nil {
		addConsumer(p, models.KindAreas, p.handleArea)
	}
	return p, nil
}

func addConsumer[T any](p *Pipeline, k models.Kind, handle func(envelope[T])) {
	p.router.AddConsumerHandler("sync_"+string(k), topicFor(k), p.pubsub, func(msg *message.Message) error {
		var env envelope[T]
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			// Malformed messages cannot succeed on retry.
			p.logger.Error("Dropping malformed mutation", err, watermill.LogFields{"kind": string(k)})
			return nil
		}
		metrics.PipelineMessages.WithLabelValues(string(k), string(env.Op)).Inc()
		handle(env)
		return nil
	})
}

// Start runs the consumer and connects the store signals. It returns once
// the consumer is ready to receive.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return errors.New("pipeline already started")
	}
	p.started = true
	p.mu.Unlock()

	runErr := make(chan error, 1)
	go func() {
		err := p.router.Run(ctx)
		if err != nil {
			p.logger.Error("Pipeline router stopped", err, nil)
		}
		runErr <- err
	}()
	select {
	case <-p.router.Running():
	case err := <-runErr:
		return fmt.Errorf("run pipeline router: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	var ds []func()
	if s := p.stores.Points; s != nil {
		ds = append(ds, s.OnMutation(publisher[models.Point](p, models.KindPoints, func(v models.Point) string { return v.RemoteID })))
	}
	if s := p.stores.Spots; s != nil {
		ds = append(ds, s.OnMutation(publisher[models.Spot](p, models.KindSpots, func(v models.Spot) string { return v.RemoteID })))
	}
	if s := p.stores.Routes; s != nil {
		ds = append(ds, s.OnMutation(publisher[models.Route](p, models.KindRoutes, func(v models.Route) string { return v.RemoteID })))
	}
	if s := p.stores.Areas; s != nil {
		ds = append(ds, s.OnMutation(publisher[models.Area](p, models.KindAreas, func(v models.Area) string { return v.RemoteID })))
	}

	p.mu.Lock()
	p.disconnects = ds
	p.mu.Unlock()
	return nil
}

func publisher[T any](p *Pipeline, k models.Kind, remoteID func(T) string) func(store.Mutation[T]) {
	return func(m store.Mutation[T]) {
		if m.Op == store.OpReplace {
			return
		}
		id := remoteID(m.Entity)
		if id == "" {
			id = remoteID(m.Previous)
		}
		payload, err := json.Marshal(envelope[T]{Op: m.Op, Index: m.Index, Entity: m.Entity, Previous: m.Previous, RemoteID: id})
		if err != nil {
			p.logger.Error("Encoding mutation failed", err, watermill.LogFields{"kind": string(k)})
			return
		}
		if err := p.pubsub.Publish(topicFor(k), message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			p.logger.Error("Publishing mutation failed", err, watermill.LogFields{"kind": string(k)})
		}
	}
}

// Close disconnects the store signals and stops the consumer. Background
// gateway calls already started keep running; Gateway.Close waits for them.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	ds := p.disconnects
	p.disconnects = nil
	p.mu.Unlock()

	for _, d := range ds {
		d()
	}
	var errs []error
	if err := p.router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if err := p.pubsub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) handlePoint(env envelope[models.Point]) {
	cur, prev := env.Entity, env.Previous
	cur.RemoteID, prev.RemoteID = env.RemoteID, env.RemoteID
	if cur.IsMarker {
		return
	}
	points := p.gw.Points()
	add := func(ctx context.Context) error {
		res, err := points.Add(ctx, cur)
		if err != nil {
			return err
		}
		if res.Duplicate() {
			p.OnPointDuplicate.Emit(res)
			return nil
		}
		p.stores.Points.BindRemoteID(cur.ID, res.RemoteID)
		return nil
	}

	switch env.Op {
	case store.OpAdd, store.OpRename:
		if cur.ID == "" {
			return
		}
		if cur.RemoteID != "" && prev.ID != "" {
			p.gw.Go("rename", models.KindPoints, func(ctx context.Context) error {
				res, err := points.Rename(ctx, cur)
				if err == nil && res.Duplicate() {
					p.OnPointDuplicate.Emit(res)
				}
				return err
			})
			return
		}
		p.gw.Go("add", models.KindPoints, add)
	case store.OpMove:
		if cur.ID == "" {
			return
		}
		if cur.RemoteID != "" {
			p.gw.Go("move", models.KindPoints, func(ctx context.Context) error { return points.Update(ctx, cur) })
			return
		}
		p.gw.Go("move", models.KindPoints, func(ctx context.Context) error {
			if _, err := points.DeleteAt(ctx, prev.Position()); err != nil {
				return err
			}
			return add(ctx)
		})
	case store.OpRemove:
		if cur.RemoteID != "" {
			p.gw.Go("remove", models.KindPoints, func(ctx context.Context) error { return points.Delete(ctx, cur) })
			return
		}
		if cur.ID == "" {
			return
		}
		p.gw.Go("remove", models.KindPoints, func(ctx context.Context) error {
			_, err := points.DeleteAt(ctx, cur.Position())
			return err
		})
	}
}

func (p *Pipeline) handleSpot(env envelope[models.Spot]) {
	cur, prev := env.Entity, env.Previous
	cur.RemoteID, prev.RemoteID = env.RemoteID, env.RemoteID
	spots := p.gw.Spots()
	add := func(ctx context.Context) error {
		res, err := spots.Add(ctx, cur)
		if err != nil {
			return err
		}
		if res.Duplicate() {
			p.OnSpotDuplicate.Emit(res)
			return nil
		}
		p.stores.Spots.BindRemoteID(cur.Name, res.RemoteID)
		return nil
	}

	switch env.Op {
	case store.OpAdd, store.OpRename:
		if cur.Name == "" {
			return
		}
		if cur.RemoteID != "" && prev.Name != "" {
			p.gw.Go("rename", models.KindSpots, func(ctx context.Context) error {
				res, err := spots.Rename(ctx, cur)
				if err == nil && res.Duplicate() {
					p.OnSpotDuplicate.Emit(res)
				}
				return err
			})
			return
		}
		p.gw.Go("add", models.KindSpots, add)
	case store.OpMove:
		if cur.Name == "" {
			return
		}
		if cur.RemoteID != "" {
			p.gw.Go("move", models.KindSpots, func(ctx context.Context) error { return spots.Update(ctx, cur) })
			return
		}
		p.gw.Go("move", models.KindSpots, func(ctx context.Context) error {
			if _, err := spots.DeleteAt(ctx, prev.Position()); err != nil {
				return err
			}
			return add(ctx)
		})
	case store.OpRemove:
		if cur.RemoteID != "" {
			p.gw.Go("remove", models.KindSpots, func(ctx context.Context) error { return spots.Delete(ctx, cur) })
			return
		}
		if cur.Name == "" {
			return
		}
		p.gw.Go("remove", models.KindSpots, func(ctx context.Context) error {
			_, err := spots.DeleteAt(ctx, cur.Position())
			return err
		})
	}
}

func (p *Pipeline) handleRoute(env envelope[models.Route]) {
	cur := env.Entity
	cur.RemoteID = env.RemoteID
	if cur.RemoteID == "" {
		return
	}
	routes := p.gw.Routes()
	switch env.Op {
	case store.OpUpdate:
		// Edits that leave the route incomplete stay local until fixed.
		if (routeCodec{}).check(cur) != nil {
			return
		}
		p.gw.Go("update", models.KindRoutes, func(ctx context.Context) error { return routes.Update(ctx, cur) })
	case store.OpRemove:
		p.gw.Go("remove", models.KindRoutes, func(ctx context.Context) error { return routes.Delete(ctx, cur) })
	}
}

func (p *Pipeline) handleArea(env envelope[models.Area]) {
	cur := env.Entity
	cur.RemoteID = env.RemoteID
	if cur.RemoteID == "" {
		return
	}
	areas := p.gw.Areas()
	switch env.Op {
	case store.OpUpdate:
		if !validation.CheckArea(cur).IsValid {
			return
		}
		p.gw.Go("update", models.KindAreas, func(ctx context.Context) error { return areas.Update(ctx, cur) })
	case store.OpRemove:
		p.gw.Go("remove", models.KindAreas, func(ctx context.Context) error { return areas.Delete(ctx, cur) })
	}
}
