package cache

import (
	"context"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
)

type memoryEntry struct {
	result    *domain.RouteResult
	expiresAt time.Time
}

// MemoryRouteCache is an in-process TTL cache used when no Redis address is
// configured, and in tests. Expired entries are dropped lazily on read.
type MemoryRouteCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryRouteCache() *MemoryRouteCache {
	return &MemoryRouteCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryRouteCache) Get(_ context.Context, key string) (*domain.RouteResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.result, true, nil
}

func (c *MemoryRouteCache) Put(_ context.Context, key string, result *domain.RouteResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{result: result, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len reports the number of live entries (including not-yet-evicted expired
// ones); useful in tests.
func (c *MemoryRouteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
