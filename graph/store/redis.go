package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of Store[S].
//
// Checkpoints are stored as JSON values under a configurable key prefix.
// An optional TTL lets finished runs age out instead of accumulating
// forever.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type RedisStore[S any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption[S any] func(*RedisStore[S])

// WithTTL sets an expiry on saved checkpoints. Zero (the default) means
// checkpoints never expire.
func WithTTL[S any](d time.Duration) RedisOption[S] {
	return func(r *RedisStore[S]) {
		r.ttl = d
	}
}

// WithPrefix overrides the key prefix. The default is "checkpoint:".
func WithPrefix[S any](prefix string) RedisOption[S] {
	return func(r *RedisStore[S]) {
		r.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at addr and returns a store.
// It pings the server before returning so misconfiguration fails fast.
func NewRedisStore[S any](ctx context.Context, addr string, opts ...RedisOption[S]) (*RedisStore[S], error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, opts...), nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewRedisStoreFromClient[S any](client *backend.Client, opts ...RedisOption[S]) *RedisStore[S] {
	r := &RedisStore[S]{
		client: client,
		prefix: "checkpoint:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore[S]) key(runID string) string {
	return r.prefix + runID
}

// Save writes or overwrites the checkpoint for cp.RunID.
func (r *RedisStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := r.client.Set(ctx, r.key(cp.RunID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for runID, or ErrNotFound.
func (r *RedisStore[S]) Load(ctx context.Context, runID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	data, err := r.client.Get(ctx, r.key(runID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp Checkpoint[S]
	if err := json.Unmarshal(data, &cp); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// Delete removes the checkpoint for runID. Absent run IDs are a no-op.
func (r *RedisStore[S]) Delete(ctx context.Context, runID string) error {
	if err := r.client.Del(ctx, r.key(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns the run IDs with a stored checkpoint. It scans the keyspace
// under the store's prefix.
func (r *RedisStore[S]) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(r.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan checkpoints: %w", err)
	}
	return ids, nil
}

// Close closes the underlying client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}
