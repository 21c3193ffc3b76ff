package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Cache stores encoded upstream responses by key.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, v json.RawMessage)
}

type cacheItem struct {
	val       json.RawMessage
	expiresAt time.Time
}

// TTLCache is an in-memory Cache with per-entry expiry and optional NATS invalidation.
type TTLCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
}

// NewTTLCache creates a TTLCache and subscribes to key-level invalidation when nc is non-nil.
// A message body of "" or "ALL" clears the whole cache.
func NewTTLCache(ttl time.Duration, nc *nats.Conn, subj string) (*TTLCache, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &TTLCache{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
	if nc != nil && subj != "" {
		if _, err := nc.Subscribe(subj, func(m *nats.Msg) {
			c.Invalidate(string(m.Data))
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *TTLCache) Get(_ context.Context, key string) (json.RawMessage, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(it.expiresAt) {
		c.mu.Lock()
		if cur, ok2 := c.items[key]; ok2 && c.now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.val, true
}

func (c *TTLCache) Set(_ context.Context, key string, v json.RawMessage) {
	c.mu.Lock()
	c.items[key] = cacheItem{val: v, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops one key, or every key when key is empty or "ALL".
func (c *TTLCache) Invalidate(key string) {
	key = strings.TrimSpace(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" || strings.EqualFold(key, "ALL") {
		c.items = make(map[string]cacheItem)
		return
	}
	delete(c.items, key)
}

// cacheKey scopes reference data to the country and locale it was fetched for.
func cacheKey(kind, country, locale string, parts ...string) string {
	key := "justwatch:" + kind + ":" + country + ":" + locale
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

type noCache struct{}

func (noCache) Get(context.Context, string) (json.RawMessage, bool) { return nil, false }
func (noCache) Set(context.Context, string, json.RawMessage)        {}
