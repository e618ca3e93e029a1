package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
)

// RedisRouteCache is a Redis-backed TTL cache for computed route results.
// Results are stored as JSON; expiry is enforced by Redis, so entries are
// invalidated by elapsed time only.
type RedisRouteCache struct {
	Client *redis.Client
}

func NewRedisRouteCache(client *redis.Client) *RedisRouteCache {
	return &RedisRouteCache{Client: client}
}

func (c *RedisRouteCache) Get(ctx context.Context, key string) (_ *domain.RouteResult, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	if c.Client == nil {
		return nil, false, errors.New("route cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: %w", err)
	}

	var result domain.RouteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode entry: %w", err)
	}

	return &result, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, key string, result *domain.RouteResult, ttl time.Duration) error {
	if c.Client == nil {
		return errors.New("route cache: client is nil")
	}
	if result == nil {
		return errors.New("put route cache: result is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("put route cache: invalid ttl %s", ttl)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("put route cache: encode entry: %w", err)
	}

	if err := c.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put route cache: %w", err)
	}

	return nil
}
