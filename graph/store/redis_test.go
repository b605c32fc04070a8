package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store[testState] {
		return NewRedisStoreFromClient[testState](newTestRedis(t))
	})
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	a := NewRedisStoreFromClient(client, WithPrefix[testState]("tenant-a:"))
	b := NewRedisStoreFromClient(client, WithPrefix[testState]("tenant-b:"))

	if err := a.Save(ctx, Checkpoint[testState]{RunID: "run-1", Status: StatusRunning}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := b.Load(ctx, "run-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound across prefixes, got %v", err)
	}

	ids, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no runs under tenant-b, got %v", ids)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	st := NewRedisStoreFromClient(client, WithTTL[testState](time.Minute))
	if err := st.Save(ctx, Checkpoint[testState]{RunID: "run-ttl", Status: StatusCompleted}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := st.Load(ctx, "run-ttl"); err != nil {
		t.Fatalf("Load before expiry failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := st.Load(ctx, "run-ttl"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after TTL expiry, got %v", err)
	}
}
