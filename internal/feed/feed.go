// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// ErrClosed is returned by a Feed after Close.
var ErrClosed = errors.New("feed is closed")

// Metadata keys set on every published change.
const (
	MetadataSource = "source"
	MetadataKind   = "kind"
)

// Config selects and tunes the transport.
type Config struct {
	// Topic is the watermill topic, and the NATS subject for NATS transports.
	Topic string `koanf:"topic" validate:"required"`

	// NATSURL connects to an external NATS server. Empty with Embedded unset
	// keeps the feed in process.
	NATSURL string `koanf:"nats_url"`

	// Embedded starts a NATS server inside this process.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`

	// Buffer is the in-process channel buffer per consumer.
	Buffer int64 `koanf:"buffer" validate:"gte=0"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns an in-process feed on topic "mapmark.changes".
func DefaultConfig() Config {
	return Config{
		Topic:         "mapmark.changes",
		EmbeddedHost:  "127.0.0.1",
		EmbeddedPort:  4222,
		Buffer:        256,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// Transport names the feed's wire.
func (c Config) Transport() string {
	switch {
	case c.Embedded:
		return "embedded-nats"
	case c.NATSURL != "":
		return "nats"
	default:
		return "gochannel"
	}
}

// Feed publishes committed document writes and hands them to consumers. It
// implements docstore.ChangeSink.
type Feed struct {
	config     Config
	publisher  message.Publisher
	subscriber message.Subscriber
	// shared is set when one transport value serves both roles.
	shared   bool
	embedded *EmbeddedServer
	logger   watermill.LoggerAdapter

	// source tags every published change with this process.
	source string

	mu     sync.RWMutex
	closed bool
}

var _ docstore.ChangeSink = (*Feed)(nil)

// New creates a feed on the transport cfg selects.
func New(cfg Config, logger watermill.LoggerAdapter) (*Feed, error) {
	def := DefaultConfig()
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = def.ReconnectWait
	}
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}

	f := &Feed{
		config: cfg,
		logger: logger,
		source: watermill.NewShortUUID(),
	}

	url := cfg.NATSURL
	if cfg.Embedded {
		srv, err := NewEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort, 30*time.Second)
		if err != nil {
			return nil, err
		}
		f.embedded = srv
		url = srv.ClientURL()
		logger.Info("Embedded NATS server started", watermill.LogFields{"url": url})
	}

	if url == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.Buffer}, logger)
		f.publisher = ch
		f.subscriber = ch
		f.shared = true
	} else {
		pub, sub, err := newNATS(url, cfg, logger)
		if err != nil {
			f.shutdownEmbedded()
			return nil, err
		}
		f.publisher = pub
		f.subscriber = sub
	}

	logger.Info("Change feed ready", watermill.LogFields{
		"transport": cfg.Transport(),
		"topic":     cfg.Topic,
	})
	return f, nil
}

// Source returns the id this feed stamps on its own changes.
func (f *Feed) Source() string {
	return f.source
}

// ClientURL returns the embedded server's URL, or "" without one.
func (f *Feed) ClientURL() string {
	if f.embedded == nil {
		return ""
	}
	return f.embedded.ClientURL()
}

// PublishChange implements docstore.ChangeSink.
func (f *Feed) PublishChange(ctx context.Context, ch docstore.Change) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(ch)
	if err != nil {
		metrics.FeedPublishErrors.Inc()
		return fmt.Errorf("marshal change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataSource, f.source)
	msg.Metadata.Set(MetadataKind, string(ch.Kind))
	msg.SetContext(ctx)

	if err := f.publisher.Publish(f.config.Topic, msg); err != nil {
		metrics.FeedPublishErrors.Inc()
		return fmt.Errorf("publish change: %w", err)
	}
	metrics.FeedPublished.WithLabelValues(string(ch.Kind)).Inc()
	return nil
}

// Changes returns every change published after the call, from this process
// or, on NATS transports, any process. The channel closes when ctx is done or
// the feed is closed.
func (f *Feed) Changes(ctx context.Context) (<-chan docstore.Change, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}

	msgs, err := f.subscriber.Subscribe(ctx, f.config.Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	out := make(chan docstore.Change, f.config.Buffer)
	go f.consume(ctx, msgs, out)
	return out, nil
}

func (f *Feed) consume(ctx context.Context, msgs <-chan *message.Message, out chan<- docstore.Change) {
	defer close(out)
	for msg := range msgs {
		var ch docstore.Change
		err := json.Unmarshal(msg.Payload, &ch)
		msg.Ack()
		if err != nil {
			f.logger.Error("Dropping malformed change", err, watermill.LogFields{"message_uuid": msg.UUID})
			continue
		}
		metrics.FeedReceived.WithLabelValues(string(ch.Kind)).Inc()

		select {
		case out <- ch:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the transport. Open Changes channels close.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	var errs []error
	if err := f.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if !f.shared {
		if err := f.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	f.shutdownEmbedded()
	return errors.Join(errs...)
}

func (f *Feed) shutdownEmbedded() {
	if f.embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.config.CloseTimeout)
	defer cancel()
	if err := f.embedded.Shutdown(ctx); err != nil {
		f.logger.Error("Embedded NATS shutdown", err, nil)
	}
}
