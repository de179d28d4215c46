package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration. A disabled or
// unreachable server yields a wrapper with a nil client; callers then fall
// back to in-memory implementations.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled {
		logger.Warn("redis disabled; cooldowns and deferred jobs stay in memory")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis; cooldowns and deferred jobs stay in memory",
			zap.String("addr", cfg.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return &Redis{}
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{Client: client}
}

// Available reports whether a client was configured.
func (r *Redis) Available() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
