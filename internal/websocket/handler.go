// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// NewUpgrader returns an upgrader that accepts the listed browser origins.
// An empty list or "*" accepts any origin. Requests without an Origin header
// (non-browser clients) are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
		},
	}
}

// ServeWS upgrades the request and attaches the connection to hub, serving
// subscriptions from store. user is recorded for logging.
func ServeWS(hub *Hub, store docstore.Store, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, user string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(hub, conn, store, user)
	select {
	case hub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	client.Start()
}
