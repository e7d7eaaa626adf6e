package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/querybridge/data/metrics"
	"github.com/redis/go-redis/v9"
)

// ErrNilClient is returned when the cache has no redis client
var ErrNilClient = errors.New("redis client is nil")

// ICache defines a general caching interface
type ICache[T any] interface {
	Get(context.Context, string) (*T, error)
	Set(context.Context, string, *T, ...time.Duration) error
	Delete(context.Context, string) error
	Exists(context.Context, string) (bool, error)
	TTL(context.Context, string) (time.Duration, error)
}

// Cache stores JSON encoded values under a key prefix
type Cache[T any] struct {
	rc        redis.UniversalClient
	key       string
	tier      string
	collector metrics.Collector
}

// NewCache creates a new Cache instance
func NewCache[T any](rc redis.UniversalClient, key string) *Cache[T] {
	return &Cache[T]{
		rc:        rc,
		key:       key,
		tier:      "redis",
		collector: metrics.NoOpCollector{},
	}
}

// NewCacheWithMetrics creates a new Cache instance reporting hits and misses
func NewCacheWithMetrics[T any](rc redis.UniversalClient, key string, collector metrics.Collector) *Cache[T] {
	cache := NewCache[T](rc, key)
	if collector != nil {
		cache.collector = collector
	}
	return cache
}

// Key defines the cache key
func (c *Cache[T]) Key(field string) string {
	if c.key != "" {
		return fmt.Sprintf("%s:%s", c.key, field)
	}
	return field
}

// Get retrieves a single item from cache, nil on miss
func (c *Cache[T]) Get(ctx context.Context, field string) (*T, error) {
	if c.rc == nil {
		return nil, ErrNilClient
	}

	result, err := c.rc.Get(ctx, c.Key(field)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.collector.MappingCache(c.tier, false)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var row T
	if err = json.Unmarshal([]byte(result), &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	c.collector.MappingCache(c.tier, true)
	return &row, nil
}

// Set saves a single item into cache
func (c *Cache[T]) Set(ctx context.Context, field string, data *T, expire ...time.Duration) error {
	if c.rc == nil {
		return ErrNilClient
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	exp := time.Duration(0)
	if len(expire) > 0 {
		exp = expire[0]
	}
	if err := c.rc.Set(ctx, c.Key(field), bytes, exp).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete removes data from cache
func (c *Cache[T]) Delete(ctx context.Context, field string) error {
	if c.rc == nil {
		return ErrNilClient
	}
	if err := c.rc.Del(ctx, c.Key(field)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Exists checks if cache key exists
func (c *Cache[T]) Exists(ctx context.Context, field string) (bool, error) {
	if c.rc == nil {
		return false, ErrNilClient
	}
	count, err := c.rc.Exists(ctx, c.Key(field)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return count > 0, nil
}

// TTL gets the time to live for a cache key
func (c *Cache[T]) TTL(ctx context.Context, field string) (time.Duration, error) {
	if c.rc == nil {
		return 0, ErrNilClient
	}
	duration, err := c.rc.TTL(ctx, c.Key(field)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get cache TTL: %w", err)
	}
	return duration, nil
}
