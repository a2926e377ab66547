package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisFixedWindowLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisFixedWindowLimiter shares one counter per key across all
// instances. The first hit in a window creates the key with a TTL equal to
// the window, so abandoned keys expire on their own.
func NewRedisFixedWindowLimiter(client *redis.Client) Limiter {
	return &redisFixedWindowLimiter{client: client, prefix: "ratelimit:"}
}

func (l *redisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	redisKey := l.prefix + key

	pipe := l.client.TxPipeline()
	countCmd := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttlCmd := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := countCmd.Val()
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		ttl = window
	}
	now := time.Now()
	resetAt := now.Add(ttl)

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if count > int64(limit) {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: ttl,
			ResetAt:    resetAt,
		}, nil
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}
