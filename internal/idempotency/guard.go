// Package idempotency keeps checkout requests from being applied twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:checkout:"

var ErrDuplicate = errors.New("duplicate request")

type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

// Acquire claims key for the given user. ErrDuplicate means the key was
// already used within the TTL.
func (g *Guard) Acquire(ctx context.Context, userID int64, key string) error {
	ok, err := g.client.SetNX(ctx, redisKey(userID, key), 1, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency acquire: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release frees a claimed key so a failed request can be retried.
func (g *Guard) Release(ctx context.Context, userID int64, key string) error {
	if err := g.client.Del(ctx, redisKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func redisKey(userID int64, key string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, userID, key)
}
