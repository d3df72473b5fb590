// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package docstore provides the remote document store used to share
annotations between editors.

Documents live in collections addressed as

	projects                      one document per project, keyed by image name
	projects/<key>/<kind>         points, spots, routes or areas of one project

Annotation documents get server-assigned ids (UUIDv7, so id order is creation
order). The Store interface is the whole capability set the sync gateway
relies on: Get, Set (create-or-merge), Query (field equality), Add, Update
(merge, with Increment for counters), Delete and Subscribe.

# Implementations

  - MemoryStore: process memory; tests and single-process editing.
  - BadgerStore: BadgerDB persistence for the server, with an optional
    ChangeSink that receives every committed write and a Collector that runs
    value log GC on an interval.
  - Client: talks to the HTTP API in internal/api and receives snapshots over
    one WebSocket connection that reconnects with exponential backoff.

# Subscriptions

A listener is called once with the current contents of the collection and
again after every change, including the caller's own writes. Each
subscription delivers from its own goroutine and keeps only the newest
pending snapshot, so slow listeners never block writers. Listener errors and
panics are logged and counted, never returned.

	sub, err := store.Subscribe(ctx, docstore.Annotations("map.png", models.KindPoints),
	    func(docs []docstore.Document) error {
	        return apply(docs)
	    })
	defer sub.Unsubscribe()

# Field values

Fields are normalized through JSON, so numbers read back as float64. Query
compares numbers numerically and parses string filter values against numeric
and boolean fields, which keeps query-string filters from the HTTP API
equivalent to typed filters.
*/
package docstore
