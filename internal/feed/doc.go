// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package feed fans committed document writes out to every interested party.

The server's BadgerStore hands each committed write to a Feed through the
docstore.ChangeSink interface. The Feed publishes it as a watermill message
and any number of consumers read it back with Changes. The websocket hub uses
this to push change notices to connected editors.

Transports:

  - In-process (default): a watermill gochannel. Changes stay inside one
    server process.
  - NATS: when Config.NATSURL is set, changes travel over core NATS subjects
    via watermill-nats, so every server replica sees every write.
  - Embedded NATS: when Config.Embedded is set, the feed starts a nats-server
    in process and connects to it. Other replicas can point NATSURL at it.

Usage:

	f, err := feed.New(feed.DefaultConfig(), logging.NewWatermillAdapter())
	if err != nil {
	    return err
	}
	defer f.Close()

	store.SetChangeSink(f)

	changes, err := f.Changes(ctx)
	for ch := range changes {
	    fmt.Println(ch.Collection(), ch.ID, ch.Op)
	}
*/
package feed
