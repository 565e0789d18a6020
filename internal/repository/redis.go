package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gorental/internal/config"
)

// RedisIdempotencyStore remembers processed gateway event ids with a TTL
// so webhook replays are suppressed across restarts and instances.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// Seen reports whether the event id is already recorded, without
// recording it.
func (r *RedisIdempotencyStore) Seen(ctx context.Context, eventID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	n, err := r.client.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return n > 0, nil
}

// FirstDelivery returns true exactly once per event id: SETNX wins only
// for the first delivery, replays observe the existing key.
func (r *RedisIdempotencyStore) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	first, err := r.client.SetNX(ctx, eventKey(eventID), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark webhook event: %w", err)
	}
	return first, nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
