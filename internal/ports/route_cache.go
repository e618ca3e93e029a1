package ports

import (
	"context"
	"time"

	"delivery-tracking-service/internal/domain"
)

// Port: a TTL-bounded cache for computed route results.
// Keys already encode origin, destination, city and time bucket; entries
// expire by elapsed time, never by event.
type RouteCache interface {
	// Get returns the cached result and whether the key was present.
	Get(ctx context.Context, key string) (*domain.RouteResult, bool, error)

	// Put stores a result under the key for at most ttl.
	Put(ctx context.Context, key string, result *domain.RouteResult, ttl time.Duration) error
}
