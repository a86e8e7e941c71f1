package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a cached payload with expiration and invalidation tags
type entry struct {
	value     []byte
	tags      []string
	expiresAt time.Time
}

// Cache is an in-memory tag-aware cache with TTL. It backs tests and serves
// as the fallback store when redis is not configured.
type Cache struct {
	mu    sync.Mutex
	items map[string]*entry
	byTag map[string]map[string]struct{}
}

// New creates a new cache
func New() *Cache {
	return &Cache{
		items: map[string]*entry{},
		byTag: map[string]map[string]struct{}{},
	}
}

// Get retrieves a payload if it hasn't expired. Expired entries are dropped
// on access.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.items[key]
	if !exists {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key, e)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores a payload under the given tags with a TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, exists := c.items[key]; exists {
		c.removeLocked(key, old)
	}
	c.items[key] = &entry{
		value:     value,
		tags:      tags,
		expiresAt: time.Now().Add(ttl),
	}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = map[string]struct{}{}
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// InvalidateTags removes every entry carrying any of the given tags and
// returns the number of removed entries. Unknown tags are no-ops, so the
// call is idempotent.
func (c *Cache) InvalidateTags(_ context.Context, tags ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for _, tag := range tags {
		for key := range c.byTag[tag] {
			if e, exists := c.items[key]; exists {
				c.removeLocked(key, e)
				removed++
			}
		}
		delete(c.byTag, tag)
	}
	return removed, nil
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]*entry{}
	c.byTag = map[string]map[string]struct{}{}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) removeLocked(key string, e *entry) {
	delete(c.items, key)
	for _, tag := range e.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}
