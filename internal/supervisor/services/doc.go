// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package services adapts Mapmark server components to suture.Service.

Each wrapper translates one lifecycle into Serve(ctx) error and names the
component for supervisor logs:

  - HTTPServerService: ListenAndServe plus graceful Shutdown
  - HubService: websocket.Hub.RunWithContext
  - FeedBridgeService: websocket.FeedBridge, change feed to hub
  - CollectorService: Start/Stop components such as docstore.Collector

The interfaces here mirror the wrapped types so this package does not
import them.
*/
package services
