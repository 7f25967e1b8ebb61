package store

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Cache stores quote values with a time to live.
type Cache interface {
	// Get returns the cached value or an error matching errors.ErrCacheMiss.
	Get(ctx context.Context, key string) (float64, error)

	// Set stores value for ttl. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key string, value float64, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// KeyPrefix is the namespace every quote key lives under.
const KeyPrefix = "quote"

// Key returns the cache key for a query against a source.
func Key(source, query string) string {
	return KeyPrefix + ":" + source + ":" + query
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type memoryEntry struct {
	value   float64
	expires time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped lazily on
// access.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   Clock
}

// NewMemoryCache creates an empty MemoryCache. A nil clock uses the system time.
func NewMemoryCache(clock Clock) *MemoryCache {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, errors.ErrCacheMiss
	}
	if !entry.expires.IsZero() && !c.clock.Now().Before(entry.expires) {
		delete(c.entries, key)
		return 0, errors.ErrCacheMiss
	}
	return entry.value, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value float64, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
