// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during
	// shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// outbound is a message queued for broadcast. A nil collection reaches every
// client; otherwise only clients subscribed to it.
type outbound struct {
	msg        docstore.Message
	collection *docstore.Collection
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Collection snapshots do not pass through the hub; each client receives
// them from its own store subscriptions.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is done, then closes every client
// and returns ctx.Err(). It is meant to run under a supervisor.
//
// DETERMINISM: when several channels are ready the hub prefers shutdown, then
// client lifecycle, then broadcasts, so client state is settled before a
// message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or wait for anything
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case out := <-h.broadcast:
			h.broadcastToClients(out)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	logging.Info().Uint64("client_id", client.id).Str("user", client.user).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	metrics.WSConnections.Dec()
	client.shutdown()
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs why the hub stopped.
// Context cancellation is expected here, so it is not logged as an error.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	reason := getShutdownReason(ctx)

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns the clients in id order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers out in client id order. Clients whose buffer
// is full are dropped; they reconnect and resubscribe.
func (h *Hub) broadcastToClients(out outbound) {
	h.mu.Lock()
	var toRemove []*Client
	for _, client := range h.sortedClients() {
		if out.collection != nil && !client.watching(*out.collection) {
			continue
		}
		if !client.enqueue(out.msg) {
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range toRemove {
		metrics.WSConnections.Dec()
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		client.shutdown()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
}

// closeAllClients closes every client in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := h.sortedClients()
	for _, client := range clients {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		metrics.WSConnections.Dec()
		client.shutdown()
	}
	logging.Info().Int("clients", len(clients)).Msg("closed all websocket clients during shutdown")
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.broadcast <- out:
	default:
		logging.Warn().Str("message_type", out.msg.Type).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastChange tells the clients subscribed to the change's collection
// that a document was written.
func (h *Hub) BroadcastChange(ch docstore.Change) {
	msg, err := docstore.NewMessage(docstore.MessageChange, ch)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to encode change notice")
		return
	}
	coll := ch.Collection()
	h.enqueue(outbound{msg: msg, collection: &coll})
}

// BroadcastJSON sends a typed message to every connected client.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	msg, err := docstore.NewMessage(messageType, data)
	if err != nil {
		logging.Warn().Err(err).Str("message_type", messageType).Msg("failed to encode broadcast")
		return
	}
	h.enqueue(outbound{msg: msg})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
