package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
)

// Cache is the in-process tier: a keyed map with per-entry TTL and lazy expiry.
// Expired entries are evicted when read; there is no background sweep.
type Cache struct {
	mu    sync.Mutex
	items map[string]ports.CacheEntry
	now   func() time.Time
}

type Option func(*Cache)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty local cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{items: make(map[string]ports.CacheEntry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements ports.LocalCache.
func (c *Cache) Get(key string) (ports.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return ports.CacheEntry{}, false
	}
	if !c.now().Before(ent.ExpiresAt) {
		delete(c.items, key)
		return ports.CacheEntry{}, false
	}
	return copyEntry(ent), true
}

// Set implements ports.LocalCache. The value is copied so later caller mutations do not leak in.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) ports.CacheEntry {
	ent := ports.CacheEntry{
		Value:     append([]byte(nil), value...),
		ExpiresAt: c.now().Add(ttl),
	}
	c.mu.Lock()
	c.items[key] = ent
	c.mu.Unlock()
	return copyEntry(ent)
}

// Delete implements ports.LocalCache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeleteByPrefix implements ports.LocalCache.
func (c *Cache) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Stats implements ports.LocalCache. Size counts stored entries, including ones not yet lazily expired.
func (c *Cache) Stats() ports.LocalCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.LocalCacheStats{Size: len(c.items)}
}

func copyEntry(ent ports.CacheEntry) ports.CacheEntry {
	return ports.CacheEntry{Value: append([]byte(nil), ent.Value...), ExpiresAt: ent.ExpiresAt}
}

var _ ports.LocalCache = (*Cache)(nil)
