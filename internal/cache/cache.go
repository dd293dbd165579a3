// Package cache provides a bounded, TTL-based memo for expensive remote
// lookups. The cache is process-local and explicitly constructed; callers
// inject an instance rather than sharing a global.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity is the entry ceiling used when none is configured.
const DefaultCapacity = 100

// entry holds one cached payload with its insertion time and TTL.
type entry struct {
	insertedAt time.Time
	payload    any
	ttl        time.Duration
}

// Cache is a capacity-bounded map from deterministic keys to payloads.
// Stale entries are not proactively purged; a read past the TTL is a miss,
// and expired entries are only superseded or evicted under capacity
// pressure. Eviction removes the single oldest-inserted entry.
type Cache struct {
	entries  map[string]entry
	now      func() time.Time
	capacity int
	mu       sync.RWMutex
}

// New creates a cache with the given entry capacity. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[string]entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Key builds a deterministic cache key from a procedure name and its
// parameters. Map keys are serialized in sorted order, so identical
// parameter sets always produce identical keys.
func Key(proc string, params map[string]any) string {
	if len(params) == 0 {
		return proc
	}
	// json.Marshal sorts map keys, giving a canonical serialization.
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", proc, params)
	}
	return proc + ":" + string(data)
}

// Get returns the payload for key if it exists and its TTL has not elapsed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= e.ttl {
		return nil, false
	}
	return e.payload, true
}

// Set inserts or overwrites an entry. If the entry count would exceed the
// capacity, the single oldest-inserted entry is evicted first.
func (c *Cache) Set(key string, payload any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = entry{
		payload:    payload,
		insertedAt: c.now(),
		ttl:        ttl,
	}
}

// evictOldest removes the entry with the earliest insertion time. Caller
// must hold the write lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true

	for key, e := range c.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.insertedAt
			first = false
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Size returns the number of entries currently held, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
