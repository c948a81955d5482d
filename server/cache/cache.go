// Package cache is a thin Redis layer for read-through caching of
// expensive queries. The whole package is optional: a nil *Cache is valid,
// and every method on it degrades to a miss or a no-op, so callers never
// branch on whether caching is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// KeyPrefix namespaces our keys when the Redis instance is shared.
	KeyPrefix string `json:"keyPrefix"`
}

type Cache struct {
	client *redis.Client
	log    logs.Log
	prefix string
}

// NewCache connects to Redis. A nil config returns a nil cache, which is
// the "caching disabled" state.
func NewCache(log logs.Log, cfg *Config) (*Cache, error) {
	if cfg == nil {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %v: %w", cfg.Addr, err)
	}
	log.Infof("Connected to redis at %v", cfg.Addr)
	return &Cache{
		client: client,
		log:    log,
		prefix: cfg.KeyPrefix,
	}, nil
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.client.Close()
}

// GetJSON returns true on a cache hit, with obj populated. Any Redis or
// decode failure is a miss, not an error; the caller falls through to the
// database.
func (c *Cache) GetJSON(ctx context.Context, key string, obj any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("Cache read of %v failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		c.log.Warnf("Cache entry %v is not valid JSON: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores obj under key with a TTL. Failures are logged and
// swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, obj any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		c.log.Warnf("Cache encode of %v failed: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		c.log.Warnf("Cache write of %v failed: %v", key, err)
	}
}

// DeleteByPattern removes every key matching a glob pattern, eg
// "posts:list:*". Uses SCAN rather than KEYS so a big keyspace doesn't
// stall the server.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+pattern, 100).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warnf("Cache scan of %v failed: %v", pattern, err)
		return
	}
	if len(keys) != 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.Warnf("Cache invalidation of %v failed: %v", pattern, err)
		}
	}
}
