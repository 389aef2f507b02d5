// Package redisstore wraps the Redis operations used by the index and record
// stores.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
)

const backend = "redis"

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithMinIdleConns(n int) Option {
	return func(o *redis.Options) { o.MinIdleConns = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", backend, err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// ZRange returns every member of the sorted set at key, lowest score first.
// Equal scores come back in member byte order. A missing key is an empty set.
func (c *Client) ZRange(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	vals, err := c.rdb.ZRange(ctx, key, 0, -1).Result()
	observability.ObserveStoreOp("zrange", backend, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGE %q: %w", key, err)
	}
	return vals, nil
}

// ZAddNX adds members to several sorted sets inside one MULTI/EXEC block.
// Members already present keep their first score.
func (c *Client) ZAddNX(ctx context.Context, sets map[string][]redis.Z) error {
	start := time.Now()
	if len(sets) == 0 {
		observability.ObserveStoreOp("zaddnx", backend, nil, time.Since(start).Seconds())
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for key, members := range sets {
			if len(members) == 0 {
				continue
			}
			p.ZAddNX(ctx, key, members...)
		}
		return nil
	})

	observability.ObserveStoreOp("zaddnx", backend, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ZADD NX %d keys (tx): %w", len(sets), err)
	}
	return nil
}

// MGet returns a map of found keys to their values
func (c *Client) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	if len(keys) == 0 {
		observability.ObserveStoreOp("mget", backend, nil, time.Since(start).Seconds())
		return map[string][]byte{}, nil
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	observability.ObserveStoreOp("mget", backend, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis MGET %d keys: %w", len(keys), err)
	}

	out := make(map[string][]byte, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case nil:
			continue // missing key
		case string:
			out[keys[i]] = []byte(t)
		case []byte:
			out[keys[i]] = t
		default:
			out[keys[i]] = fmt.Append(nil, t)
		}
	}
	return out, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveStoreOp("set", backend, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) MSetWithTTL(
	ctx context.Context,
	kv map[string][]byte,
	ttl time.Duration,
) error {
	start := time.Now()
	if len(kv) == 0 {
		observability.ObserveStoreOp("mset", backend, nil, time.Since(start).Seconds())
		return nil
	}

	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range kv {
			p.Set(ctx, k, v, ttl)
		}
		return nil
	})

	observability.ObserveStoreOp("mset", backend, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis MSET %d keys (pipeline): %w", len(kv), err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", backend, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
