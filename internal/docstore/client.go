// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mapmark/internal/logging"
)

const backendClient = "client"

// ClientConfig configures a remote store client.
type ClientConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8640.
	BaseURL string

	// Token is sent as a bearer token on HTTP requests and the WebSocket
	// handshake. Empty disables the header.
	Token string

	// RequestsPerSecond paces HTTP requests. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size.
	Burst int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// HTTPError is a non-success API response.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote store: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps 404 responses to ErrNotFound.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client implements Store against the HTTP API, with subscriptions carried
// over a single WebSocket connection that reconnects and resubscribes on
// failure.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	hub     *hub
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu  sync.RWMutex
	conn    *websocket.Conn
	started bool
	writeMu sync.Mutex

	mu     sync.Mutex
	latest map[string][]Document
	closed bool
}

var _ Store = (*Client)(nil)

// NewClient creates a client. No connection is made until the first call.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		base:    base,
		token:   cfg.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		hub:     newHub(backendClient),
		logger:  logging.WithComponent("docstore").With().Str("backend", backendClient).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		latest:  make(map[string][]Document),
	}
	c.hub.onIdle = c.collectionIdle
	return c, nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// resource returns the API path for c and an optional document id.
func resource(c Collection, id string) string {
	var b strings.Builder
	b.WriteString("/api/v1/projects")
	if c.IsRoot() {
		if id != "" {
			b.WriteString("/" + url.PathEscape(id))
		}
		return b.String()
	}
	b.WriteString("/" + url.PathEscape(c.Project) + "/" + string(c.Kind))
	if id != "" {
		b.WriteString("/" + url.PathEscape(id))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &HTTPError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		herr := &HTTPError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			herr.Code, herr.Message = env.Error.Code, env.Error.Message
		}
		return herr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// Get implements Store.
func (c *Client) Get(ctx context.Context, coll Collection, id string) (doc Document, err error) {
	start := time.Now()
	defer func() { observe(backendClient, "get", start, err) }()
	if err = coll.Validate(); err != nil {
		return Document{}, err
	}
	err = c.do(ctx, http.MethodGet, resource(coll, id), nil, nil, &doc)
	return doc, err
}

// Set implements Store.
func (c *Client) Set(ctx context.Context, coll Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendClient, "set", start, err) }()
	if err = coll.Validate(); err != nil {
		return err
	}
	if !coll.IsRoot() {
		return fmt.Errorf("set on %s: %w", coll, ErrUnsupported)
	}
	return c.do(ctx, http.MethodPut, resource(coll, id), nil, fields, nil)
}

// Query implements Store.
func (c *Client) Query(ctx context.Context, coll Collection, filters ...Filter) (docs []Document, err error) {
	start := time.Now()
	defer func() { observe(backendClient, "query", start, err) }()
	if err = coll.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Field, fmt.Sprint(f.Value))
	}
	if err = c.do(ctx, http.MethodGet, resource(coll, ""), q, nil, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// Add implements Store.
func (c *Client) Add(ctx context.Context, coll Collection, fields Fields) (id string, err error) {
	start := time.Now()
	defer func() { observe(backendClient, "add", start, err) }()
	if err = coll.Validate(); err != nil {
		return "", err
	}
	if coll.IsRoot() {
		return "", fmt.Errorf("add on %s: %w", coll, ErrUnsupported)
	}
	var out AddResponse
	if err = c.do(ctx, http.MethodPost, resource(coll, ""), nil, fields, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Update implements Store.
func (c *Client) Update(ctx context.Context, coll Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendClient, "update", start, err) }()
	if err = coll.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, resource(coll, id), nil, fields, nil)
}

// Delete implements Store.
func (c *Client) Delete(ctx context.Context, coll Collection, id string) (err error) {
	start := time.Now()
	defer func() { observe(backendClient, "delete", start, err) }()
	if err = coll.Validate(); err != nil {
		return err
	}
	err = c.do(ctx, http.MethodDelete, resource(coll, id), nil, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Subscribe implements Store. The first listener of a collection subscribes
// over the WebSocket; later listeners start from the last received snapshot.
func (c *Client) Subscribe(ctx context.Context, coll Collection, l Listener) (Subscription, error) {
	if err := coll.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	first := !c.hub.watching(coll)
	initial, have := c.latest[coll.Path()]
	if !have {
		initial = nil
	}
	sub, err := c.hub.register(ctx, coll, l, initial)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if first {
		if err := c.ensureConnected(ctx); err != nil {
			sub.Unsubscribe()
			return nil, err
		}
		if err := c.send(MessageSubscribe, SubscribeRequest{Project: coll.Project, Kind: coll.Kind}); err != nil {
			sub.Unsubscribe()
			return nil, err
		}
	}
	return sub, nil
}

func (c *Client) collectionIdle(coll Collection) {
	c.mu.Lock()
	delete(c.latest, coll.Path())
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	if err := c.send(MessageUnsubscribe, SubscribeRequest{Project: coll.Project, Kind: coll.Kind}); err != nil {
		c.logger.Debug().Err(err).Str("collection", coll.Path()).Msg("Unsubscribe not sent")
	}
}

func (c *Client) wsURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/api/v1/ws"
	return u.String()
}

func (c *Client) dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := dialer.DialContext(ctx, c.wsURL(), header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn
	c.logger.Debug().Str("url", c.wsURL()).Msg("WebSocket connected")
	return nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if !c.started {
		c.started = true
		c.wg.Add(2)
		go c.listen()
		go c.pingLoop()
	}
	return nil
}

func (c *Client) send(typ string, data any) error {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) listen() {
	defer c.wg.Done()

	reconnectDelay := 1 * time.Second
	maxReconnectDelay := 32 * time.Second

	for {
		if c.ctx.Err() != nil {
			return
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn == nil {
			select {
			case <-time.After(reconnectDelay):
			case <-c.ctx.Done():
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)

			if err := c.dial(c.ctx); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket reconnection failed")
				continue
			}
			reconnectDelay = 1 * time.Second
			c.resubscribe()
			continue
		}

		if err := conn.SetReadDeadline(time.Now().Add(90 * time.Second)); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to set read deadline")
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			c.closeConnection()
			continue
		}
		c.handleMessage(data)
	}
}

func (c *Client) resubscribe() {
	for _, coll := range c.hub.collections() {
		if err := c.send(MessageSubscribe, SubscribeRequest{Project: coll.Project, Kind: coll.Kind}); err != nil {
			c.logger.Warn().Err(err).Str("collection", coll.Path()).Msg("Resubscribe failed")
			return
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn().Err(err).Msg("Malformed WebSocket message")
		return
	}

	switch msg.Type {
	case MessageSnapshot:
		var snap Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed snapshot")
			return
		}
		if snap.Documents == nil {
			snap.Documents = []Document{}
		}
		coll := snap.Collection()
		c.mu.Lock()
		if c.hub.watching(coll) {
			c.latest[coll.Path()] = snap.Documents
			c.hub.publish(coll, snap.Documents)
		}
		c.mu.Unlock()
	case MessageError:
		var e ErrorMessage
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed error message")
			return
		}
		c.logger.Warn().Str("project", e.Project).Str("kind", string(e.Kind)).Msg(e.Message)
	default:
		c.logger.Debug().Str("type", msg.Type).Msg("Ignoring WebSocket message")
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				continue
			}
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug().Err(err).Msg("WebSocket ping failed")
				c.closeConnection()
			}
		}
	}
}

func (c *Client) closeConnection() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("WebSocket close failed")
	}
	c.conn = nil
}

// Close implements Store.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.hub.close()
	c.cancel()
	c.closeConnection()
	c.wg.Wait()
	return nil
}
