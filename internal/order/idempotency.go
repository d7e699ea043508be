package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "storefront:idempotency:order:"
	pendingMarker        = "pending"
)

// Idempotency remembers which requests already produced an order. The order table's unique key is
// the final word; this is the fast path that also stops concurrent replays before they reserve stock.
type Idempotency interface {
	// Claim marks key as in flight. It returns false and the recorded order ID ("" while the first
	// request is still running) if the key was claimed before.
	Claim(ctx context.Context, key string) (claimed bool, orderID string, err error)

	// Complete records the order produced for key.
	Complete(ctx context.Context, key, orderID string) error

	// Abandon forgets a claim whose request failed so the client can retry.
	Abandon(ctx context.Context, key string) error
}

// RedisIdempotency implements Idempotency with SET NX.
type RedisIdempotency struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotency creates a Redis-backed Idempotency whose records live for ttl.
func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{client: client, ttl: ttl}
}

func (r *RedisIdempotency) Claim(ctx context.Context, key string) (bool, string, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, pendingMarker, r.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return true, "", nil
	}
	orderID, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; treat as free.
		return r.Claim(ctx, key)
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if orderID == pendingMarker {
		orderID = ""
	}
	return false, orderID, nil
}

func (r *RedisIdempotency) Complete(ctx context.Context, key, orderID string) error {
	if err := r.client.Set(ctx, idempotencyKeyPrefix+key, orderID, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

func (r *RedisIdempotency) Abandon(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// NopIdempotency claims every key. It is used when Redis is disabled; the order table still
// rejects replays.
type NopIdempotency struct{}

func (NopIdempotency) Claim(context.Context, string) (bool, string, error) { return true, "", nil }
func (NopIdempotency) Complete(context.Context, string, string) error      { return nil }
func (NopIdempotency) Abandon(context.Context, string) error               { return nil }
