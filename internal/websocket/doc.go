// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

/*
Package websocket pushes live collection snapshots to connected editors.

Editors open one WebSocket connection and subscribe to the collections they
display. Each subscription is a docstore subscription on the server's store:
the client receives the full collection once, then again after every write to
it. docstore.Client is the Go side of this protocol.

Key Components:

  - Hub: tracks connected clients and fans out broadcasts
  - Client: one connection with read/write pumps and its store subscriptions
  - FeedBridge: forwards the change feed to the hub as change notices
  - ServeWS: upgrades an HTTP request and attaches the connection

Protocol (every frame is {"type": ..., "data": ...}):

	client -> server
	  {"type":"subscribe","data":{"project":"castle.png","kind":"points"}}
	  {"type":"unsubscribe","data":{"project":"castle.png","kind":"points"}}
	  {"type":"ping"}

	server -> client
	  {"type":"snapshot","data":{"project":..,"kind":..,"documents":[..]}}
	  {"type":"change","data":{"project":..,"kind":..,"id":..,"op":"add","at":..}}
	  {"type":"error","data":{"project":..,"kind":..,"message":..}}
	  {"type":"pong"}

Change notices only reach clients subscribed to the changed collection.

Backpressure:

Each client buffers 256 outgoing messages. A client that falls behind is
disconnected rather than silently losing snapshots; docstore.Client
reconnects and resubscribes, receiving fresh snapshots.

Connection settings:

  - writeWait: 10 seconds
  - pongWait: 60 seconds
  - pingPeriod: 54 seconds
  - maxMessageSize: 512 KB
*/
package websocket
