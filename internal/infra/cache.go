// Package infra provides shared infrastructure for the Incubator import
// server: a TTL cache for per-wiki namespace catalogs and request
// deduplication for concurrent catalog resolutions.
package infra

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheCleanup is how often expired entries are swept.
const DefaultCacheCleanup = 5 * time.Minute

// cacheEntry holds cached data with expiration
type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a TTL cache keyed by string. Namespace catalogs are cached here
// per destination dbname for the lifetime of the process; the catalog for a
// wiki changes only when the wiki is reconfigured, so entries carry a long
// TTL rather than none at all.
type Cache struct {
	entries sync.Map // key (string) -> *cacheEntry
	count   int64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache and starts its background cleanup sweep.
func NewCache() *Cache {
	c := &Cache{stopCh: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

// Get retrieves a cached value if it exists and hasn't expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	if entry, ok := c.entries.Load(key); ok {
		ce := entry.(*cacheEntry)
		if time.Now().Before(ce.expiresAt) {
			return ce.data, true
		}
		if _, existed := c.entries.LoadAndDelete(key); existed {
			atomic.AddInt64(&c.count, -1)
		}
	}
	return nil, false
}

// Set stores a value with the specified TTL.
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	_, existed := c.entries.Load(key)
	c.entries.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	})
	if !existed {
		atomic.AddInt64(&c.count, 1)
	}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	if _, existed := c.entries.LoadAndDelete(key); existed {
		atomic.AddInt64(&c.count, -1)
	}
}

// Size returns the current number of entries.
func (c *Cache) Size() int64 {
	return atomic.LoadInt64(&c.count)
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(DefaultCacheCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	now := time.Now()
	var expired int64
	c.entries.Range(func(key, value interface{}) bool {
		if now.After(value.(*cacheEntry).expiresAt) {
			if _, existed := c.entries.LoadAndDelete(key); existed {
				expired++
			}
		}
		return true
	})
	if expired > 0 {
		atomic.AddInt64(&c.count, -expired)
	}
}
