package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/interview-scheduler/internal/interview"
)

const redisKeyPrefix = "interview:suggestions:"

// RedisCache stores suggestion lists as JSON strings in Redis.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]interview.Suggestion, bool, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var suggestions []interview.Suggestion
	if err := json.Unmarshal(payload, &suggestions); err != nil {
		return nil, false, fmt.Errorf("decode cached suggestions: %w", err)
	}
	return suggestions, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, suggestions []interview.Suggestion, ttl time.Duration) error {
	if suggestions == nil {
		suggestions = []interview.Suggestion{}
	}
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("encode suggestions: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
