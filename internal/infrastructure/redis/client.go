package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Client is a lazily-connected handle to the shared cache. The underlying
// connection is established on first use and reused process-wide; go-redis
// handles reconnection after transient failures. Construct one in the
// composition root and inject it wherever a KV store is needed.
type Client struct {
	url string

	mu  sync.Mutex
	rdb *redis.Client
}

// New creates a Client for the given redis:// URL. No connection is made
// until the first operation.
func New(url string) *Client {
	return &Client{url: url}
}

// NewWithClient wraps an existing go-redis client. Used by tests (miniredis)
// and by callers that manage their own connection options.
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) conn() (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb != nil {
		return c.rdb, nil
	}
	opts, err := redis.ParseURL(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c.rdb = redis.NewClient(opts)
	return c.rdb, nil
}

// Get returns the value at key, or domain.ErrNotFound when the key is absent
// or already evicted by its TTL.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	rdb, err := c.conn()
	if err != nil {
		return "", err
	}
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set writes value at key with the given TTL, replacing any existing value.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Del removes key. Deleting a missing key is not an error.
func (c *Client) Del(ctx context.Context, key string) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection if one was established.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Close()
	c.rdb = nil
	return err
}
