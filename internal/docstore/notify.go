// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// hub fans collection snapshots out to listeners. Each subscription runs its
// own delivery goroutine and keeps only the newest undelivered snapshot, so a
// slow listener skips intermediate states but always sees the latest one and
// never blocks writers.
type hub struct {
	backend string
	logger  zerolog.Logger

	// onIdle, when set, runs after the last listener of a collection leaves.
	onIdle func(c Collection)

	mu     sync.Mutex
	subs   map[string]map[uint64]*subscription
	nextID uint64
	closed bool
}

func newHub(backend string) *hub {
	return &hub{
		backend: backend,
		logger:  logging.WithComponent("docstore").With().Str("backend", backend).Logger(),
		subs:    make(map[string]map[uint64]*subscription),
	}
}

type subscription struct {
	hub      *hub
	coll     Collection
	id       uint64
	listener Listener

	mu      sync.Mutex
	pending []Document
	ready   bool

	wake      chan struct{}
	done      chan struct{}
	once      sync.Once
	stopAfter func() bool
}

// register adds a listener for c. When initial is non-nil it is delivered
// first. Callers hold their own write lock so no change slips between the
// snapshot and the registration.
func (h *hub) register(ctx context.Context, c Collection, l Listener, initial []Document) (*subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	sub := &subscription{
		hub:      h,
		coll:     c,
		id:       h.nextID,
		listener: l,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	path := c.Path()
	if h.subs[path] == nil {
		h.subs[path] = make(map[uint64]*subscription)
	}
	h.subs[path][sub.id] = sub
	h.mu.Unlock()

	metrics.DocstoreSubscriptions.WithLabelValues(h.backend).Inc()
	if initial != nil {
		sub.offer(initial)
	}
	go sub.run()

	stop := context.AfterFunc(ctx, sub.Unsubscribe)
	sub.mu.Lock()
	sub.stopAfter = stop
	sub.mu.Unlock()
	select {
	case <-sub.done:
		stop()
	default:
	}
	return sub, nil
}

// watching reports whether anyone listens on c.
func (h *hub) watching(c Collection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[c.Path()]) > 0
}

// publish hands docs to every listener of c.
func (h *hub) publish(c Collection, docs []Document) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs[c.Path()]))
	for _, s := range h.subs[c.Path()] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.offer(docs)
	}
}

// collections returns every collection with at least one listener.
func (h *hub) collections() []Collection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Collection, 0, len(h.subs))
	for _, subs := range h.subs {
		for _, s := range subs {
			out = append(out, s.coll)
			break
		}
	}
	return out
}

func (h *hub) remove(s *subscription) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	path := s.coll.Path()
	if _, ok := h.subs[path][s.id]; !ok {
		return false
	}
	delete(h.subs[path], s.id)
	metrics.DocstoreSubscriptions.WithLabelValues(h.backend).Dec()
	if len(h.subs[path]) == 0 {
		delete(h.subs, path)
		return true
	}
	return false
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscription
	for _, subs := range h.subs {
		for _, s := range subs {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Unsubscribe()
	}
}

func (s *subscription) offer(docs []Document) {
	s.mu.Lock()
	s.pending = docs
	s.ready = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		docs, ok := s.pending, s.ready
		s.pending, s.ready = nil, false
		s.mu.Unlock()

		if ok {
			s.deliver(docs)
		}
	}
}

func (s *subscription) deliver(docs []Document) {
	select {
	case <-s.done:
		return
	default:
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener panic: %v", r)
			}
		}()
		err = s.listener(cloneDocuments(docs))
	}()
	if err != nil {
		kind := string(s.coll.Kind)
		if kind == "" {
			kind = "projects"
		}
		metrics.DocstoreListenerErrors.WithLabelValues(s.hub.backend, kind).Inc()
		s.hub.logger.Warn().
			Err(err).
			Str("collection", s.coll.Path()).
			Msg("Subscription listener failed")
	}
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		last := s.hub.remove(s)
		close(s.done)
		s.mu.Lock()
		stop := s.stopAfter
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		if last && s.hub.onIdle != nil {
			s.hub.onIdle(s.coll)
		}
	})
}

func cloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Fields: d.Fields.Clone()}
	}
	return out
}
