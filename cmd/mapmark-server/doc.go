// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Command mapmark-server runs the shared Mapmark document store and its tools.

Commands:

	mapmark-server [serve]    run the HTTP and WebSocket server (default)
	mapmark-server token      print a signed bearer token (AUTH_MODE=jwt)
	mapmark-server export     write a project's annotations as JSON

# Serve

Startup order:

 1. Configuration: defaults, optional config.yaml, environment (koanf v2)
 2. Logging: zerolog, json or console
 3. Document store: BadgerDB, or memory with STORE_BACKEND=memory
 4. Change feed: in-process, NATS, or embedded NATS (watermill)
 5. WebSocket hub and feed bridge
 6. Authentication (JWT) and authorization (Casbin)
 7. HTTP API (chi)
 8. Supervisor tree (suture v4) running the hub, bridge, GC and HTTP server

SIGINT and SIGTERM cancel the tree. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, then the feed and store are closed.

# Token

	export AUTH_MODE=jwt JWT_SECRET=$(openssl rand -base64 48)
	mapmark-server token -user alice -role editor

# Export

Export talks to a running server through the same client an editor uses,
configured by MAPMARK_URL and MAPMARK_TOKEN:

	MAPMARK_URL=http://maps.internal:8640 mapmark-server export \
	    -project harbor.png -width 4000 -height 3000 -o harbor.json

# Example

	docker run -d -p 8640:8640 -v mapmark:/data \
	  -e AUTH_MODE=jwt -e JWT_SECRET=... \
	  ghcr.io/tomtom215/mapmark
*/
package main
