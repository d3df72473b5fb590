// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package session wires one open project together: the four entity stores, the
sync gateway, the background pipeline and, optionally, live re-application
of remote snapshots.

Open is the composition root. It writes the project document, loads every
collection into fresh stores, starts the pipeline and subscribes. Close
undoes all of it in reverse, so switching images is Close then Open.

# Gestures

Tap and Drag take pointer positions in page pixels and convert them with the
element bounds, canvas size and current view before hit-testing:

	s, err := session.Open(ctx, remote, session.Config{
	    Project: "castle.png",
	    Image:   geometry.Size{Width: 4000, Height: 3000},
	    Canvas:  geometry.Size{Width: 1000, Height: 750},
	    User:    userID,
	    Live:    true,
	})
	if err != nil {
	    return err
	}
	defer s.Close()

	res, _ := s.Tap(geometry.PointF{X: 120, Y: 80})
	if res.Outcome == session.OutcomeCreated {
	    s.CommitPointID(res.Index, "a7") // stored as A-07, synced in the background
	}

Points and spots sync on every committed change. Routes and areas are saved
explicitly with SaveRoute and SaveArea, which return remote errors; after a
save, edits to them sync like points.
*/
package session
