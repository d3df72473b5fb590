// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

// Package store holds the in-memory annotation collections: points, spots,
// routes and areas.
//
// Coordinates are canvas pixels. Every mutation rounds to integers and then
// notifies typed observers through Signal values:
//
//   - OnChange receives a copy of the full collection.
//   - OnCountChange (points and spots) receives the count of labeled,
//     non-marker entries.
//   - OnMutation receives a Mutation describing what changed. The sync
//     pipeline consumes these to mirror edits remotely.
//
// Route and area stores hold many collections with at most one selected.
// Every waypoint and vertex operation targets the selected collection and
// fails with ErrNoSelection when there is none. Callers must not change the
// selection while another goroutine is mutating.
//
// Handlers run synchronously on the mutating goroutine after the store lock
// has been released, so they may read the store.
package store
