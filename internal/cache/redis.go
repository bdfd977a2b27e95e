package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a shared response cache backed by the same go-redis
// client the mapping store uses, for deployments running more than one
// proxy instance that want cache hits to cross instance boundaries.
// SetNX gives the same atomic check-and-insert guarantee the in-process
// LRU provides locally.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a RedisCache over client, which may be shared
// with the mapping store.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + "cache:" + k
}

// Get returns the cached response body for key, if present.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	c.client.Incr(ctx, c.key(key)+":hits")
	return val, true, nil
}

// PutIfAbsent stores responseBody under key with the given ttl, only if
// no entry already exists.
func (c *RedisCache) PutIfAbsent(ctx context.Context, key, responseBody string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(key), responseBody, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: put %s: %w", key, err)
	}
	return ok, nil
}
