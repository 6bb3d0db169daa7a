// Package redis holds the Redis-backed response cache and the Pub/Sub
// publisher used for run notifications. Every call goes through a circuit
// breaker so a dead Redis degrades to cache misses instead of slow requests.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis connection.
type Config struct {
	Addr         string // e.g. "localhost:6379"
	Password     string
	DB           int
	Prefix       string        // key namespace, e.g. "backtest"
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // how long the breaker stays open
}

// Client wraps a go-redis client with a key prefix and a circuit breaker.
type Client struct {
	rdb    *goredis.Client
	prefix string
	cb     *CircuitBreaker
}

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return NewWithClient(rdb, cfg), nil
}

// NewWithClient wraps an existing go-redis client without pinging it.
func NewWithClient(rdb *goredis.Client, cfg Config) *Client {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.IsFailure = func(err error) bool {
		return err != nil && err != goredis.Nil
	}
	cb.OnStateChange = func(from, to State) {
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
	return &Client{rdb: rdb, prefix: cfg.Prefix, cb: cb}
}

// Redis returns the underlying go-redis client for health checks.
func (c *Client) Redis() *goredis.Client { return c.rdb }

// Breaker exposes the circuit breaker state for metrics.
func (c *Client) Breaker() *CircuitBreaker { return c.cb }

// Ping checks connectivity. It bypasses the breaker so health checks report
// the real server state.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Publish sends message to a Pub/Sub channel.
func (c *Client) Publish(ctx context.Context, channel string, message []byte) error {
	return c.cb.Execute(func() error {
		return c.rdb.Publish(ctx, c.key(channel), message).Err()
	})
}

// Subscribe subscribes to a Pub/Sub channel and waits for the confirmation.
// The caller owns the returned handle and must close it.
func (c *Client) Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error) {
	ps := c.rdb.Subscribe(ctx, c.key(channel))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	return ps, nil
}

// Close closes the Redis client.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}
