package llm

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type OpinionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type RedisOpinionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOpinionCache(client *redis.Client, ttl time.Duration) *RedisOpinionCache {
	return &RedisOpinionCache{client: client, ttl: ttl}
}

func (c *RedisOpinionCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisOpinionCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}
