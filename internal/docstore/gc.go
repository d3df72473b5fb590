// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/metrics"
)

func observeGC(start time.Time, err error) {
	metrics.RecordGC(time.Since(start), err)
}

// Collector runs BadgerDB value log garbage collection on an interval.
// Deletes and updates leave stale values behind; without periodic GC the
// value log only grows.
type Collector struct {
	store    *BadgerStore
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewCollector creates a collector using the store's GCInterval.
func NewCollector(store *BadgerStore) *Collector {
	interval := store.config.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Collector{store: store, interval: interval}
}

// Start begins the background loop. Calling Start twice is a no-op.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()

	logging.Info().Dur("interval", c.interval).Msg("Document store GC started")
	return nil
}

// Stop ends the loop and waits for an in-flight run.
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Document store GC stopped")
}

// IsRunning returns whether the loop is active.
func (c *Collector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LastRun returns when the last collection finished.
func (c *Collector) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

func (c *Collector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	start := time.Now()
	if err := c.store.RunGC(); err != nil {
		logging.Error().Err(err).Msg("Document store GC error")
	}

	c.mu.Lock()
	c.lastRun = time.Now()
	c.mu.Unlock()

	lsm, vlog := c.store.Size()
	logging.Debug().
		Dur("duration", time.Since(start)).
		Int64("lsm_bytes", lsm).
		Int64("vlog_bytes", vlog).
		Msg("Document store GC finished")
}
