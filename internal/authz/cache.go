// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package authz

import (
	"strings"
	"sync"
	"time"
)

// keySep cannot appear in a subject or an escaped URL path.
const keySep = "\x00"

// enforcementCache caches authorization decisions for a fixed TTL.
type enforcementCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

func newEnforcementCache(ttl time.Duration) *enforcementCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &enforcementCache{
		ttl:      ttl,
		items:    make(map[string]cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.janitor()
	return c
}

func cacheKey(subject, object, action string) string {
	return subject + keySep + object + keySep + action
}

func (c *enforcementCache) get(subject, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[cacheKey(subject, object, action)]
	if !found || time.Now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

func (c *enforcementCache) set(subject, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(subject, object, action)] = cacheItem{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// invalidateUser drops every decision cached for subject.
func (c *enforcementCache) invalidateUser(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := subject + keySep
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

func (c *enforcementCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *enforcementCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

func (c *enforcementCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

// stop ends the janitor. Safe to call more than once.
func (c *enforcementCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
