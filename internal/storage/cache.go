// Package storage provides the queue-handle cache and the delivery journal.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Default TTL for queue handle entries. Queue URLs only change when queues
// are recreated, so a long TTL is appropriate.
const defaultHandleTTL = 24 * time.Hour

// RedisCache implements contracts.Cache using Redis. It lets multiple
// emulator processes (or restarts) share resolved queue handles.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// Ensure RedisCache implements contracts.Cache
var _ contracts.Cache = (*RedisCache)(nil)

func (c *RedisCache) buildKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get retrieves a value from the cache. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.buildKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// Set stores a value in the cache with an optional TTL in seconds.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttlSeconds int) error {
	ttl := defaultHandleTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	if err := c.client.Set(ctx, c.buildKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
