// Package cache implements the bounded, TTL-bounded, FIFO-evicting
// response cache (spec.md §4.10), grounded on the concurrency-safe map
// idiom in the teacher's internal/crawler/crawler.go (a sync.Mutex
// guarding plain maps), generalized to a sync.RWMutex plus an ordered
// key slice for FIFO eviction.
package cache

import (
	"sync"
	"time"

	"github.com/cameronrye/gopher-mcp-go/internal/result"
)

type entry struct {
	value     result.Result
	timestamp time.Time
	ttl       time.Duration
}

// Cache is a keyed, TTL-bounded, FIFO-evicting store of successful fetch
// results. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration
	data    map[string]entry
	order   []string // insertion order, for FIFO eviction
}

// New constructs a Cache bounded to maxEntries, with the given default
// TTL applied to every insert.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxEntries,
		ttl:     ttl,
		data:    make(map[string]entry),
		order:   make([]string, 0, maxEntries),
	}
}

// Get returns the cached Result for key if present and not expired.
func (c *Cache) Get(key string) (result.Result, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return result.Result{}, false
	}
	if time.Since(e.timestamp) > e.ttl {
		return result.Result{}, false
	}
	return e.value, true
}

// Put inserts value under key, evicting the oldest entry (in insertion
// order) if the cache is at capacity. Re-inserting an existing key does
// not change its position in the eviction order.
func (c *Cache) Put(key string, value result.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists {
		if c.maxSize > 0 && len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.data, oldest)
		}
		c.order = append(c.order, key)
	}
	c.data[key] = entry{value: value, timestamp: time.Now(), ttl: c.ttl}
}

// Len returns the current number of entries, including expired ones: Get
// never removes an entry, and Put removes only the oldest one when the
// cache is full.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
