package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

// RedisStore is a Store backed by Redis, for deployments running more
// than one proxy instance against a shared mapping store. Expiry is
// delegated entirely to Redis's own TTL: Sweep is a no-op.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore using an already-configured
// go-redis client, so callers can share one client (and its connection
// pool) across the store and the response cache.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + "mapping:" + id
}

// Put implements Store. It uses SET NX EX so the atomic-create-only
// guarantee holds even against a concurrent Put racing on the same id
// from another proxy instance.
func (r *RedisStore) Put(ctx context.Context, id string, m *mapping.Mapping, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("store: marshal mapping: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store: put mapping %s: %w", id, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// Get implements Store. A redis.Nil miss is reported as found=false
// with a nil error, never as an error — an expired mapping mid-request
// is an expected outcome, not a failure.
func (r *RedisStore) Get(ctx context.Context, id string) (*mapping.Mapping, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get mapping %s: %w", id, err)
	}

	m := &mapping.Mapping{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, false, fmt.Errorf("store: unmarshal mapping %s: %w", id, err)
	}
	return m, true, nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("store: delete mapping %s: %w", id, err)
	}
	return nil
}

// Sweep implements Store as a no-op: Redis expires keys on its own.
func (r *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
