package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/peerpay/internal/domain"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache is a process-local cache used when no Redis is configured.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the value for key, or ErrStorageUnavailable on a miss so
// callers fall through to the repository the same way a Redis miss does.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return "", domain.ErrStorageUnavailable
	}

	return entry.value, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}

	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)

	return nil
}
