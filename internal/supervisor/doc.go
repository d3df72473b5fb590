// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package supervisor runs the Mapmark server's long-lived services under a
suture v4 tree.

The tree has three layers so a failing component restarts without taking
the others down:

	mapmark
	├── store-layer
	│   └── docstore-gc        (BadgerDB value log GC, badger backend only)
	├── realtime-layer
	│   ├── websocket-hub
	│   └── feed-bridge        (change feed to hub)
	└── api-layer
	    └── http-server

Supervisor events (start, failure, backoff, restart) are logged through
sutureslog into the zerolog logger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddRealtimeService(services.NewFeedBridgeService(bridge))
	tree.AddAPIService(services.NewHTTPServerService(server, 30*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

The services subpackage holds the suture.Service wrappers.
*/
package supervisor
