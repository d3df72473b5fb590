// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package websocket

import (
	"context"
	"sync"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
)

// ChangeSource yields committed document writes. feed.Feed implements it.
type ChangeSource interface {
	Changes(ctx context.Context) (<-chan docstore.Change, error)
}

// FeedBridge forwards change-feed events to the hub as change notices.
type FeedBridge struct {
	hub     *Hub
	source  ChangeSource
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFeedBridge creates a bridge from source to hub.
func NewFeedBridge(hub *Hub, source ChangeSource) *FeedBridge {
	return &FeedBridge{hub: hub, source: source}
}

// Start subscribes to the source and forwards in the background. Calling it
// on a running bridge does nothing.
func (b *FeedBridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	changes, err := b.source.Changes(ctx)
	if err != nil {
		return err
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})

	go b.processChanges(ctx, changes, b.stopCh, b.doneCh)

	logging.Info().Msg("change feed to websocket bridge started")
	return nil
}

// Stop stops forwarding and waits for the forwarding goroutine.
func (b *FeedBridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	close(stopCh)
	<-doneCh
	logging.Info().Msg("change feed to websocket bridge stopped")
}

// Serve runs the bridge until ctx is done, for use under a supervisor.
func (b *FeedBridge) Serve(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	doneCh := b.doneCh
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		b.Stop()
		return ctx.Err()
	case <-doneCh:
		b.Stop()
		if err := ctx.Err(); err != nil {
			return err
		}
		// The source closed its channel; let the supervisor restart us.
		return ErrSourceClosed
	}
}

func (b *FeedBridge) processChanges(ctx context.Context, changes <-chan docstore.Change, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			b.hub.BroadcastChange(ch)
		}
	}
}
