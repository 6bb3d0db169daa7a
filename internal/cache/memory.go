package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxEntries = 1024
	defaultTTL        = 5 * time.Minute
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
	lastUsed time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// Memory is a process-local Cache with TTL expiry and LRU eviction once
// MaxEntries is reached. Values are stored JSON-encoded so callers never share
// memory with the cache.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*memoryItem
	maxEntries int
	now        func() time.Time
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
// maxEntries <= 0 uses a default of 1024.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		items:      make(map[string]*memoryItem),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	item, ok := m.items[key]
	now := m.now()
	if ok && item.expired(now) {
		delete(m.items, key)
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		return ErrCacheMiss
	}
	item.lastUsed = now
	data := item.data
	m.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxEntries {
		m.evict(now)
	}
	m.items[key] = &memoryItem{data: data, expireAt: now.Add(ttl), lastUsed: now}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// evict drops expired entries, or the least recently used one if none expired.
// Caller holds mu.
func (m *Memory) evict(now time.Time) {
	var (
		oldestKey  string
		oldestUsed time.Time
		dropped    bool
	)
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
			dropped = true
			continue
		}
		if oldestKey == "" || item.lastUsed.Before(oldestUsed) {
			oldestKey, oldestUsed = key, item.lastUsed
		}
	}
	if !dropped && oldestKey != "" {
		delete(m.items, oldestKey)
	}
}
