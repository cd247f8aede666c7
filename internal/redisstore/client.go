package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the redis connection used for the auth throttle counters.
type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Incr bumps the fixed-window counter for key and returns the new count and
// the time remaining in the window. The expiry is only set when the key is
// created, so the window does not slide.
func (c *Client) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.rdb.TxPipeline()

	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)

	_, err := pipe.Exec(ctx)

	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()

	if remaining < 0 {
		remaining = window
	}

	return incr.Val(), remaining, nil
}
