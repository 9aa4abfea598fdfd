package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const luaScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

const keyPrefix = "interview:ratelimit:"

// Redis is a fixed-window limiter shared by every replica. Redis failures
// admit the request.
type Redis struct {
	client  redis.Scripter
	script  *redis.Script
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedis wraps a Redis client.
func NewRedis(client redis.Scripter, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:  client,
		script:  redis.NewScript(luaScript),
		timeout: 250 * time.Millisecond,
		logger:  logger.With("component", "ratelimit"),
	}
}

// Allow implements Limiter.
func (l *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{keyPrefix + key}, ttl, limit).Int64()
	if err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, admitting request", "error", err)
		return true
	}
	return allowed == 1
}
