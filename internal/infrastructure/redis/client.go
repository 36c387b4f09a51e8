package redis

import (
	"context"
	"fmt"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/go-redis/redis/v8"
)

// retryBackoff is used as both the minimum and maximum backoff so the single retry never grows.
const retryBackoff = 25 * time.Millisecond

// NewRedisClient creates a Redis client from cfg.URL and pings it within cfg.OpTimeout.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout
	opts.IdleTimeout = cfg.IdleTimeout
	opts.MaxRetries = 1
	opts.MinRetryBackoff = retryBackoff
	opts.MaxRetryBackoff = retryBackoff

	client := redis.NewClient(opts)

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, cfg.OpTimeout)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
