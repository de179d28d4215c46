package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cooldown:"

// RedisLimiter stores one expiring key per actor so the window survives
// restarts and is shared between replicas.
type RedisLimiter struct {
	client redis.Cmdable
	window time.Duration
	prefix string
}

// NewRedisLimiter creates a limiter backed by Redis.
func NewRedisLimiter(client redis.Cmdable, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, window: window, prefix: keyPrefix}
}

// TryConsume implements Limiter. The clock argument is ignored because key
// expiry is tracked by Redis itself.
func (l *RedisLimiter) TryConsume(ctx context.Context, key string, _ time.Time) (Decision, error) {
	redisKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, redisKey, 1, l.window).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("cooldown: set %s: %w", redisKey, err)
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("cooldown: ttl %s: %w", redisKey, err)
	}
	if ttl <= 0 {
		// key vanished or has no expiry; reset it
		if err := l.client.Set(ctx, redisKey, 1, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("cooldown: reset %s: %w", redisKey, err)
		}
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Remaining: ttl}, nil
}
