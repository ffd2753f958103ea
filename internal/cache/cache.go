package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent. A backend failure is
// reported the same way so callers degrade to a recompute, never an error.
var ErrMiss = errors.New("cache: miss")

// Cache is a key/value store with per-entry expiry. Losing every entry must
// only ever cost latency; no caller may depend on a Set being durable.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewCache selects the backend once at startup: Redis when a client was
// configured, otherwise an inert stand-in.
func NewCache(client *redis.Client) Cache {
	if client == nil {
		return NoopCache{}
	}
	return &RedisCache{client: client}
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Cache get failed for %s: %v", key, err)
		}
		return "", ErrMiss
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("Cache set failed for %s: %v", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("Cache delete failed for %s: %v", key, err)
	}
	return nil
}

// NoopCache is used when no Redis URL is configured. Every Get is a miss and
// writes succeed trivially.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) (string, error) {
	return "", ErrMiss
}

func (NoopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, key string) error {
	return nil
}
