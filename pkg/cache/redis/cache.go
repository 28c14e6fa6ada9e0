package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatgate/chatgate/pkg/config"
	"github.com/chatgate/chatgate/pkg/models"
)

const keyPrefix = "chatgate:answer:"

// Cache is an exact-match answer cache backed by Redis. Entries expire
// server-side via the configured TTL.
//
// The constructor does not require connectivity: an unreachable Redis
// degrades every Get to a miss instead of failing gateway startup.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// New creates a Cache for the given Redis server and default TTL.
func New(cfg config.RedisConfig, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, ttl: ttl}
}

// Get retrieves a cached answer. Backend errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	answer, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return "", false
	}
	if err != nil {
		c.errs.Add(1)
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return answer, true
}

// Put stores an answer with the default TTL.
func (c *Cache) Put(ctx context.Context, key, answer string) error {
	if err := c.client.Set(ctx, keyPrefix+key, answer, c.ttl).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics. The entry count scans the
// gateway's key prefix so unrelated keys in the same database are not
// counted.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errs.Load(),
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return stats, fmt.Errorf("cache stats: %w", err)
		}
		stats.Entries += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return stats, nil
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
