// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package sync mirrors local annotation edits into the shared document store.

# Components

  - Gateway: bound to one open project by Open and disposed by Close. Per
    kind it offers Add (with dedup), Update, Overwrite, Delete, Load and
    Subscribe; points and spots also offer FindAt and DeleteAt. It converts
    between canvas space (local) and image space (remote), keeps the project
    counters, tracks subscriptions and runs background tasks.
  - Pipeline: listens to store mutations and turns each one into a
    background gateway call through a watermill in-process channel.
  - BreakerStore: a docstore.Store wrapper with a gobreaker circuit breaker.

# Layout

	projects/<image>                 project document with counters
	projects/<image>/points/<id>     {id, x, y, isMarker, ...audit}
	projects/<image>/spots/<id>      {name, nameKey, x, y, ...audit}
	projects/<image>/routes/<id>     {routeName, startPointId, endPointId, startKey, endKey, waypoints}
	projects/<image>/areas/<id>      {areaName, vertices, isModified}

Audit fields are createdBy, createdAt, lastUpdatedBy and updatedAt.

# Dedup

Add first queries the collection by natural key: canonical point id, folded
spot name, route endpoint pair, area name. A hit returns an AddResult with
StatusDuplicate carrying both the stored and the attempted entity; nothing
is written and the caller decides whether to Overwrite.

# Errors

User-initiated calls (Open, Project, Add, Update, Delete, Load) return
errors. Work started with Gateway.Go, which is how the Pipeline runs,
is logged and counted and never returned. Counter updates are best effort:
a failed increment is logged and the entity write stands.

# Known races

Remote writes are not serialized. Two quick edits of the same entity run as
independent calls and the one confirmed last wins, whatever the issue
order. Two adds of the same natural key that both pass the existence check
before either inserts produce two documents; there is no unique constraint
in the store. Both are accepted limitations.

# Usage

	gw, err := sync.Open(ctx, store, sync.Options{
	    Project: "map.png",
	    Image:   geometry.Size{Width: 4000, Height: 3000},
	    Canvas:  geometry.Size{Width: 1000, Height: 750},
	    User:    userID,
	})
	if err != nil {
	    return err
	}
	defer gw.Close()

	res, err := gw.Points().Add(ctx, models.Point{X: 10, Y: 20, ID: "A-01"})
	if res.Duplicate() {
	    // ask the user, then gw.Points().Overwrite(ctx, res)
	}
*/
package sync
