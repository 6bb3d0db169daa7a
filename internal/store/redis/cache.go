package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-backtestv1/internal/cache"
)

const scanBatch = 200

// Cache implements cache.Cache on top of Redis string keys.
type Cache struct {
	c *Client
}

var _ cache.Cache = (*Cache)(nil)

// NewCache returns a Cache using c's prefix and breaker.
func NewCache(c *Client) *Cache {
	return &Cache{c: c}
}

func (rc *Cache) Get(ctx context.Context, key string, dest any) error {
	var data []byte
	err := rc.c.cb.Execute(func() error {
		var err error
		data, err = rc.c.rdb.Get(ctx, rc.c.key(key)).Bytes()
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return cache.ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (rc *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.c.cb.Execute(func() error {
		return rc.c.rdb.Set(ctx, rc.c.key(key), data, ttl).Err()
	})
}

// Invalidate deletes every key under prefix using SCAN, so a large keyspace
// never blocks the server the way KEYS would.
func (rc *Cache) Invalidate(ctx context.Context, prefix string) error {
	return rc.c.cb.Execute(func() error {
		iter := rc.c.rdb.Scan(ctx, 0, matchPrefix(rc.c.key(prefix)), scanBatch).Iterator()
		batch := make([]string, 0, scanBatch)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				if err := rc.c.rdb.Unlink(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			return rc.c.rdb.Unlink(ctx, batch...).Err()
		}
		return nil
	})
}

// matchPrefix builds a SCAN MATCH pattern for keys starting with prefix.
// Glob metacharacters in the prefix match only themselves.
func matchPrefix(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 2)
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}
