package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned when a cache key is not found
var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON values in Redis under a key prefix.
type Cache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// Connect parses a Redis URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 只记录地址，不记录完整 URL（可能包含密码）
	log.Info().Str("addr", opt.Addr).Msg("✅ Redis connected")
	return client, nil
}

// NewCache wraps a connected client.
func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client:     client,
		prefix:     prefix,
		defaultTTL: ttl,
	}
}

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get error: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// Set stores a value in cache
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error {
	expiration := c.defaultTTL
	if len(ttl) > 0 {
		expiration = ttl[0]
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, expiration).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// DeletePattern deletes all keys under the prefix matching pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	return deleteMatching(ctx, c.client, c.prefix+pattern)
}

// deleteMatching walks keys with SCAN rather than KEYS so large keyspaces do
// not block the server.
func deleteMatching(ctx context.Context, client *redis.Client, pattern string) (int64, error) {
	var deleted int64
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := client.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del error: %w", err)
			}
			deleted += n
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan error: %w", err)
	}
	if len(batch) > 0 {
		n, err := client.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del error: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
