// Package cache provides the fast, TTL-bound tier backing session
// metadata and recent conversation history. It is a thin layer over
// Redis; callers own key naming through the exported key helpers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// TTL is the expiry applied to session and message keys.
	TTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// Redis is the cache tier implementation.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// NewFromClient wraps an existing client. Useful for testing with
// miniredis.
func NewFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// SessionKey returns the cache key holding a session's metadata hash.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// MessagesKey returns the cache key holding a session's message list.
func MessagesKey(sessionID string) string {
	return "messages:" + sessionID
}

// TTL reports the configured key expiry.
func (c *Redis) TTL() time.Duration {
	return c.ttl
}

// SetHash writes all fields of a hash and refreshes the key's TTL.
func (c *Redis) SetHash(ctx context.Context, key string, fields map[string]any) error {
	if err := c.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return c.Expire(ctx, key)
}

// SetHashField writes a single hash field without touching the TTL.
func (c *Redis) SetHashField(ctx context.Context, key, field, value string) error {
	if err := c.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s.%s: %w", key, field, err)
	}
	return nil
}

// GetHash reads all fields of a hash. A missing key yields an empty map.
func (c *Redis) GetHash(ctx context.Context, key string) (map[string]string, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fields, nil
}

// IncrHashField atomically adds delta to an integer hash field.
func (c *Redis) IncrHashField(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := c.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("hincrby %s.%s: %w", key, field, err)
	}
	return n, nil
}

// Exists reports whether a key is present.
func (c *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Expire refreshes the key's TTL to the configured duration. A zero TTL
// leaves the key without expiry.
func (c *Redis) Expire(ctx context.Context, key string) error {
	if c.ttl <= 0 {
		return nil
	}
	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// PushFront prepends a value to a list and refreshes the list's TTL.
// Lists are stored newest-first; see RangeOldestFirst for the read-side
// contract.
func (c *Redis) PushFront(ctx context.Context, key, value string) error {
	if err := c.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return c.Expire(ctx, key)
}

// RangeOldestFirst reads up to limit entries from a list written with
// PushFront. The list's native order is last-written-first, so the slice
// is reversed here: callers always receive oldest-first. This reversal is
// part of the cache tier contract, not a caller convention.
func (c *Redis) RangeOldestFirst(ctx context.Context, key string, limit int) ([]string, error) {
	vals, err := c.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return vals, nil
}

// Delete removes keys. Missing keys are not an error.
func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// Ping checks connectivity to the cache tier.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}
