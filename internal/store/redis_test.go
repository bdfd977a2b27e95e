package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "test:"), mr
}

func TestRedisStorePutGet(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	m := mapping.New("tenant-1", time.Minute)
	m.Add("PERSON", "Alice")

	if err := s.Put(ctx, m.ID(), m, time.Minute); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := s.Get(ctx, m.ID())
	if err != nil || !found {
		t.Fatalf("Get() = (found=%v, err=%v), want (true, nil)", found, err)
	}
	if got.ID() != m.ID() {
		t.Errorf("Get() returned mapping with ID %q, want %q", got.ID(), m.ID())
	}
	original, ok := got.Original("<PERSON_1>")
	if !ok || original != "Alice" {
		t.Errorf("restored mapping Original(<PERSON_1>) = (%q, %v), want (Alice, true)", original, ok)
	}
}

func TestRedisStorePutDuplicateID(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	m := mapping.New("tenant-1", time.Minute)

	if err := s.Put(ctx, "fixed-id", m, time.Minute); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := s.Put(ctx, "fixed-id", m, time.Minute); err != ErrAlreadyExists {
		t.Errorf("second Put() error = %v, want ErrAlreadyExists", err)
	}
}

func TestRedisStoreGetAbsent(t *testing.T) {
	s, _ := newTestRedisStore(t)

	_, found, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get() on absent id returned error = %v, want nil", err)
	}
	if found {
		t.Error("Get() on absent id returned found=true")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	m := mapping.New("tenant-1", time.Second)
	if err := s.Put(ctx, m.ID(), m, time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	mr.FastForward(2 * time.Second)

	_, found, err := s.Get(ctx, m.ID())
	if err != nil {
		t.Fatalf("Get() after TTL elapsed returned error = %v, want nil", err)
	}
	if found {
		t.Error("Get() after TTL elapsed returned found=true")
	}
}

func TestRedisStoreSweepIsNoop(t *testing.T) {
	s, _ := newTestRedisStore(t)
	removed, err := s.Sweep(context.Background())
	if err != nil || removed != 0 {
		t.Errorf("Sweep() = (%d, %v), want (0, nil) — Redis delegates expiry to TTL", removed, err)
	}
}
