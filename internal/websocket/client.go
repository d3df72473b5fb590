// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
	sendBuffer     = 256
)

// clientIDCounter gives clients monotonically increasing ids so broadcasts
// iterate them in a stable order.
var clientIDCounter atomic.Uint64

// Client is a middleman between one websocket connection, the hub and the
// document store. Each subscribe request opens a store subscription whose
// snapshots are written to the connection.
type Client struct {
	id    uint64
	hub   *Hub
	conn  *websocket.Conn
	store docstore.Store
	user  string
	send  chan docstore.Message

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	subs   map[string]docstore.Subscription
}

// NewClient creates a client for conn serving collections from store on
// behalf of user.
func NewClient(hub *Hub, conn *websocket.Conn, store docstore.Store, user string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		conn:   conn,
		store:  store,
		user:   user,
		send:   make(chan docstore.Message, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[string]docstore.Subscription),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// enqueue queues msg for writing. It reports false when the buffer is full.
// Messages for a closed client are discarded.
func (c *Client) enqueue(msg docstore.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) watching(coll docstore.Collection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[coll.Path()]
	return ok
}

// Subscriptions returns how many collections the client watches.
func (c *Client) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// shutdown releases every store subscription and closes the send channel,
// which makes writePump send a close frame. It is safe to call more than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
	subs := c.subs
	c.subs = make(map[string]docstore.Subscription)
	c.mu.Unlock()

	c.cancel()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	metrics.WSSubscriptions.Sub(float64(len(subs)))
}

// overflow drops a connection that cannot keep up with its snapshots.
// Closing the socket ends readPump, which unregisters the client.
func (c *Client) overflow() {
	metrics.WSErrors.WithLabelValues("slow_client").Inc()
	logging.Warn().Uint64("client_id", c.id).Msg("websocket send buffer full, closing connection")
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) sendError(coll docstore.Collection, text string) {
	msg, err := docstore.NewMessage(docstore.MessageError, docstore.ErrorMessage{
		Project: coll.Project,
		Kind:    coll.Kind,
		Message: text,
	})
	if err != nil {
		return
	}
	if !c.enqueue(msg) {
		c.overflow()
	}
}

func (c *Client) listener(coll docstore.Collection) docstore.Listener {
	return func(docs []docstore.Document) error {
		msg, err := docstore.NewMessage(docstore.MessageSnapshot, docstore.Snapshot{
			Project:   coll.Project,
			Kind:      coll.Kind,
			Documents: docs,
		})
		if err != nil {
			return err
		}
		if !c.enqueue(msg) {
			c.overflow()
		}
		return nil
	}
}

func (c *Client) subscribe(req docstore.SubscribeRequest) {
	coll := req.Collection()
	if err := coll.Validate(); err != nil {
		c.sendError(coll, err.Error())
		return
	}
	if c.watching(coll) {
		return
	}

	sub, err := c.store.Subscribe(c.ctx, coll, c.listener(coll))
	if err != nil {
		logging.Warn().Err(err).Uint64("client_id", c.id).Str("collection", coll.Path()).Msg("websocket subscribe failed")
		c.sendError(coll, fmt.Sprintf("subscribe failed: %v", err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.subs[coll.Path()] = sub
	c.mu.Unlock()
	metrics.WSSubscriptions.Inc()
}

func (c *Client) unsubscribe(req docstore.SubscribeRequest) {
	path := req.Collection().Path()
	c.mu.Lock()
	sub, ok := c.subs[path]
	delete(c.subs, path)
	c.mu.Unlock()
	if ok {
		sub.Unsubscribe()
		metrics.WSSubscriptions.Dec()
	}
}

// handle dispatches one client frame.
func (c *Client) handle(data []byte) {
	var msg docstore.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.WSErrors.WithLabelValues("malformed").Inc()
		c.sendError(docstore.Collection{}, "malformed message")
		return
	}

	switch msg.Type {
	case docstore.MessageSubscribe, docstore.MessageUnsubscribe:
		var req docstore.SubscribeRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			metrics.WSErrors.WithLabelValues("malformed").Inc()
			c.sendError(docstore.Collection{}, "malformed subscription request")
			return
		}
		if msg.Type == docstore.MessageSubscribe {
			c.subscribe(req)
		} else {
			c.unsubscribe(req)
		}
	case docstore.MessagePing:
		if !c.enqueue(docstore.Message{Type: docstore.MessagePong}) {
			c.overflow()
		}
	default:
		c.sendError(docstore.Collection{}, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// readPump pumps frames from the websocket connection to the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.done:
		}
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		c.handle(data)
	}
}

// writePump pumps messages from the client to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The client was shut down
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Str("message_type", message.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
