// Package redis holds the connection used for cross-replica portal leases.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 5 * time.Second
	clientName     = "cita-watcher"
)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and fails unless the server answers a ping.
func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		ClientName:  clientName,
		DialTimeout: connectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr(), err)
	}

	log.Info().Str("addr", cfg.Redis.Addr()).Int("db", cfg.Redis.DB).Msg("Connected to Redis")
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetNX stores value under key for ttl unless the key already exists. It
// reports whether the key was set.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}
