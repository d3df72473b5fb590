// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the WebSocket hub. The hub closes every client when ctx
// is canceled.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string {
	return s.name
}

// ChangeBridge is satisfied by *websocket.FeedBridge.
type ChangeBridge interface {
	Serve(ctx context.Context) error
}

// FeedBridgeService forwards change feed events to the hub. When the feed
// closes its channel the bridge returns an error and the supervisor
// resubscribes.
type FeedBridgeService struct {
	bridge ChangeBridge
	name   string
}

// NewFeedBridgeService wraps bridge.
func NewFeedBridgeService(bridge ChangeBridge) *FeedBridgeService {
	return &FeedBridgeService{bridge: bridge, name: "feed-bridge"}
}

// Serve implements suture.Service.
func (s *FeedBridgeService) Serve(ctx context.Context) error {
	return s.bridge.Serve(ctx)
}

func (s *FeedBridgeService) String() string {
	return s.name
}
