package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const defaultScanCount = 200

// RedisCache implements ports.RemoteCache.
//
// The client is created on first use. The first operational error (anything other than a
// plain miss) closes the client and opens the circuit for the rest of the process lifetime;
// every later call returns ports.ErrTierUnavailable without touching the network.
type RedisCache struct {
	cfg    config.RedisConfig
	logger *logrus.Logger

	mu     sync.Mutex
	client *redis.Client
	down   atomic.Bool
}

// NewRedisCache creates a remote cache tier. No connection is attempted until the first call.
func NewRedisCache(cfg config.RedisConfig, logger *logrus.Logger) *RedisCache {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = time.Second
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = defaultScanCount
	}
	return &RedisCache{cfg: cfg, logger: logger}
}

// Configured reports whether a Redis URL was provided.
func (c *RedisCache) Configured() bool { return c.cfg.URL != "" }

// Enabled implements ports.RemoteCache.
func (c *RedisCache) Enabled() bool { return c.Configured() && !c.down.Load() }

// Get implements ports.RemoteCache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	client, err := c.acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	val, err := client.Get(opCtx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, c.trip(ctx, "get", err)
	}
	return val, true, nil
}

// Set implements ports.RemoteCache using SET key value PX ms.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	client, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	if err := client.Do(opCtx, "set", key, value, "px", ms).Err(); err != nil {
		return c.trip(ctx, "set", err)
	}
	return nil
}

// Delete implements ports.RemoteCache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	client, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	if err := client.Del(opCtx, key).Err(); err != nil {
		return c.trip(ctx, "del", err)
	}
	return nil
}

// ScanAndDelete implements ports.RemoteCache. It walks the keyspace with SCAN MATCH COUNT and
// deletes each batch as it is returned. Each round trip gets its own timeout.
func (c *RedisCache) ScanAndDelete(ctx context.Context, pattern string) (int, error) {
	client, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.scanBatch(ctx, client, cursor, pattern)
		if err != nil {
			return deleted, c.trip(ctx, "scan", err)
		}
		if len(keys) > 0 {
			n, err := c.deleteBatch(ctx, client, keys)
			if err != nil {
				return deleted, c.trip(ctx, "del", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Ping checks the connection; used by health checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	client, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := client.Ping(opCtx).Err(); err != nil {
		return c.trip(ctx, "ping", err)
	}
	return nil
}

// Close releases the client, if one was created.
func (c *RedisCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *RedisCache) scanBatch(ctx context.Context, client *redis.Client, cursor uint64, pattern string) ([]string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	return client.Scan(ctx, cursor, pattern, c.cfg.ScanCount).Result()
}

func (c *RedisCache) deleteBatch(ctx context.Context, client *redis.Client, keys []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	return client.Del(ctx, keys...).Result()
}

// acquire returns the live client, connecting on first use.
func (c *RedisCache) acquire(ctx context.Context) (*redis.Client, error) {
	if !c.Configured() || c.down.Load() {
		return nil, ports.ErrTierUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.down.Load() {
		return nil, ports.ErrTierUnavailable
	}
	if c.client != nil {
		return c.client, nil
	}

	client, err := NewRedisClient(ctx, &c.cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("redis connect: %w", ctx.Err())
		}
		c.down.Store(true)
		c.logUnavailable("connect", err)
		return nil, fmt.Errorf("%w: %v", ports.ErrTierUnavailable, err)
	}
	c.client = client
	return client, nil
}

// trip opens the circuit permanently and drops the client. Errors caused by the caller's own
// context, and error replies from the server, leave the tier up: neither says the connection is bad.
func (c *RedisCache) trip(ctx context.Context, op string, cause error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("redis %s: %w", op, cause)
	}
	var reply redis.Error
	if errors.As(cause, &reply) {
		return fmt.Errorf("redis %s: %w", op, cause)
	}

	if c.down.CompareAndSwap(false, true) {
		c.logUnavailable(op, cause)
		c.mu.Lock()
		if c.client != nil {
			_ = c.client.Close()
			c.client = nil
		}
		c.mu.Unlock()
	}
	if errors.Is(cause, ports.ErrTierUnavailable) {
		return cause
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrTierUnavailable, op, cause)
}

func (c *RedisCache) logUnavailable(op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"op": op,
	}).WithError(err).Warn("redis tier unavailable, continuing without it")
}

var _ ports.RemoteCache = (*RedisCache)(nil)
