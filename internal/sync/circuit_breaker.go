// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mapmark/internal/docstore"
	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

// BreakerConfig tunes the circuit breaker around a remote document store.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32        // requests allowed through while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open-state wait before half-open
	MinRequests  uint32        // requests needed before the ratio is considered
	FailureRatio float64
}

// DefaultBreakerConfig opens after 60% failures over at least 10 requests
// and retries after two minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "docstore",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerStore wraps a docstore.Store with a circuit breaker so a failing
// remote stops receiving calls for a while instead of stacking up timeouts.
//
// Not-found answers and caller cancellation do not count as failures.
// Subscribe and Close pass straight through: subscriptions have their own
// reconnect loop.
type BreakerStore struct {
	store docstore.Store
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

var _ docstore.Store = (*BreakerStore)(nil)

// NewBreakerStore wraps store.
func NewBreakerStore(store docstore.Store, cfg BreakerConfig) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "docstore"
	}
	name := cfg.Name

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, docstore.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerStore{store: store, cb: cb, name: name}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (b *BreakerStore) State() string {
	return stateToString(b.cb.State())
}

// execute runs fn under the breaker and records the outcome.
func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		case errors.Is(err, docstore.ErrNotFound):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			counts := b.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Get reads one document.
func (b *BreakerStore) Get(ctx context.Context, c docstore.Collection, id string) (docstore.Document, error) {
	return castResult[docstore.Document](b.execute(func() (any, error) {
		return b.store.Get(ctx, c, id)
	}))
}

// Set creates or merges a document.
func (b *BreakerStore) Set(ctx context.Context, c docstore.Collection, id string, f docstore.Fields) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.store.Set(ctx, c, id, f)
	})
	return err
}

// Query returns documents matching every filter.
func (b *BreakerStore) Query(ctx context.Context, c docstore.Collection, filters ...docstore.Filter) ([]docstore.Document, error) {
	return castResult[[]docstore.Document](b.execute(func() (any, error) {
		return b.store.Query(ctx, c, filters...)
	}))
}

// Add inserts a document and returns its new id.
func (b *BreakerStore) Add(ctx context.Context, c docstore.Collection, f docstore.Fields) (string, error) {
	return castResult[string](b.execute(func() (any, error) {
		return b.store.Add(ctx, c, f)
	}))
}

// Update merges f into an existing document.
func (b *BreakerStore) Update(ctx context.Context, c docstore.Collection, id string, f docstore.Fields) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.store.Update(ctx, c, id, f)
	})
	return err
}

// Delete removes a document.
func (b *BreakerStore) Delete(ctx context.Context, c docstore.Collection, id string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.store.Delete(ctx, c, id)
	})
	return err
}

// Subscribe passes through to the wrapped store.
func (b *BreakerStore) Subscribe(ctx context.Context, c docstore.Collection, l docstore.Listener) (docstore.Subscription, error) {
	return b.store.Subscribe(ctx, c, l)
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.store.Close()
}
