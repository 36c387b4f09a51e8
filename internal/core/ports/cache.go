package ports

import (
	"context"
	"errors"
	"time"
)

// ErrTierUnavailable is returned by a remote cache that is not configured or whose
// circuit has opened. Callers treat it as a permanent miss.
var ErrTierUnavailable = errors.New("cache tier unavailable")

// CacheEntry is a stored value and its absolute expiry. Each tier keeps its own copy.
type CacheEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

type LocalCacheStats struct {
	Size int `json:"size"`
}

// LocalCache is the in-process tier. Operations never block on I/O.
type LocalCache interface {
	// Get returns the entry for key; expired entries are evicted and reported absent.
	Get(key string) (CacheEntry, bool)
	Set(key string, value []byte, ttl time.Duration) CacheEntry
	Delete(key string)
	// DeleteByPrefix removes every key starting with prefix and returns how many were removed.
	DeleteByPrefix(prefix string) int
	Stats() LocalCacheStats
}

// RemoteCache is the shared network tier.
// Implementations should degrade gracefully (returning ErrTierUnavailable without crashing callers)
// so that application logic can fall back to the origin.
type RemoteCache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with a TTL expressed to the store in milliseconds.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// ScanAndDelete removes every key matching a glob pattern using cursor iteration.
	ScanAndDelete(ctx context.Context, pattern string) (int, error)
	// Enabled reports whether the tier is configured and its circuit is still closed.
	Enabled() bool
}
