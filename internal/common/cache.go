package common

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// TTLCache is a small keyed cache with per-entry expiry. It is injected into
// components that would otherwise hit a lookup table on every document.
type TTLCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[string]cacheEntry
}

// NewTTLCache returns a cache whose entries expire ttl after they were put.
// A non-positive ttl disables expiry.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value and whether it is present and fresh.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.fetchedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Put stores value under key, stamping it with the current time.
func (c *TTLCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
}

// Invalidate removes a single key.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Refresh re-fetches the value via fn and stores it, returning the new value.
// On fetch error the stale entry (if any) is left untouched.
func (c *TTLCache) Refresh(key string, fn func() (any, error)) (any, error) {
	value, err := fn()
	if err != nil {
		return nil, err
	}
	c.Put(key, value)
	return value, nil
}

// FetchedAt reports when the entry for key was stored.
func (c *TTLCache) FetchedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return entry.fetchedAt, true
}
