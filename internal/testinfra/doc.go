// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package testinfra starts real services in Docker for integration tests.
//
// It uses testcontainers-go. Everything here is behind the integration
// build tag:
//
//	go test -tags integration ./internal/feed/...
//
// # NATS Container
//
//	func TestFeedOverNATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    nats, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, nats)
//
//	    f, err := feed.New(feed.Config{NATSURL: nats.URL}, nil)
//	    // ...
//	}
//
// Tests skip when Docker is unavailable. The first run pulls the image.
package testinfra
