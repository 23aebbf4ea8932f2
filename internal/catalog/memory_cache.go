package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/model"
)

// InMemoryCache implements Cache with a process-local TTL map. Used when no
// shared Redis cache is configured; each process then warms its own copy of
// the directory.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]directoryEntry
	maxSize int
	logger  *zap.Logger
}

type directoryEntry struct {
	tenant    *model.Tenant
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory directory cache
func NewInMemoryCache(maxSize int, logger *zap.Logger) Cache {
	cache := &InMemoryCache{
		entries: make(map[string]directoryEntry),
		maxSize: maxSize,
		logger:  logger,
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a cached tenant mapping
func (c *InMemoryCache) Get(ctx context.Context, key string) (*model.Tenant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	return entry.tenant, nil
}

// Set stores a tenant mapping with TTL
func (c *InMemoryCache) Set(ctx context.Context, key string, tenant *model.Tenant, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict an expired entry first, then any entry if still at capacity
	if len(c.entries) >= c.maxSize {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
				break
			}
		}
		if len(c.entries) >= c.maxSize {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}

	c.entries[key] = directoryEntry{
		tenant:    tenant,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a tenant mapping from the cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// cleanup periodically removes expired entries
func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}

// Size returns the number of cached mappings
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
