package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-backtestv1/internal/cache"
)

// unreachable returns a client pointed at a closed port.
func unreachable(t *testing.T) *Client {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(rdb, Config{Prefix: "test", MaxFailures: 2, ResetTimeout: time.Minute})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_Key(t *testing.T) {
	c := &Client{prefix: "bt"}
	if got := c.key("BTC:1h"); got != "bt:BTC:1h" {
		t.Errorf("key = %q", got)
	}
	c.prefix = ""
	if got := c.key("BTC:1h"); got != "BTC:1h" {
		t.Errorf("key without prefix = %q", got)
	}
}

func TestMatchPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"bt:BTC:1h:", `bt:BTC:1h:*`},
		{"bt:BTC*:1h:", `bt:BTC\*:1h:*`},
		{"bt:[A]?:1m:", `bt:\[A\]\?:1m:*`},
		{`bt:a\b:`, `bt:a\\b:*`},
		{"", "*"},
	}
	for _, tt := range tests {
		if got := matchPrefix(tt.in); got != tt.want {
			t.Errorf("matchPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCache_BreakerOpensWhenRedisDown(t *testing.T) {
	c := unreachable(t)
	rc := NewCache(c)
	ctx := context.Background()

	var v int
	for i := 0; i < 2; i++ {
		err := rc.Get(ctx, "k", &v)
		if err == nil || errors.Is(err, cache.ErrCacheMiss) {
			t.Fatalf("expected connection error, got %v", err)
		}
	}
	if c.Breaker().CurrentState() != StateOpen {
		t.Fatalf("expected breaker open, got %v", c.Breaker().CurrentState())
	}
	if err := rc.Set(ctx, "k", 1, time.Minute); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Set with open breaker = %v", err)
	}
	if err := c.Publish(ctx, "runs", []byte("{}")); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Publish with open breaker = %v", err)
	}
}
