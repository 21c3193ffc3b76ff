package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache shares cached responses between gateway replicas. Redis errors
// are logged and treated as cache misses.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
	log    *zap.Logger
}

func NewRedisCache(url string, ttl time.Duration, log *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{Client: redis.NewClient(opt), TTL: ttl, log: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis get", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if !json.Valid(val) {
		return nil, false
	}
	return json.RawMessage(val), true
}

func (c *RedisCache) Set(ctx context.Context, key string, v json.RawMessage) {
	if err := c.Client.Set(ctx, key, []byte(v), c.TTL).Err(); err != nil {
		c.log.Warn("redis set", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes one key, or every gateway key when key is empty or "ALL".
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key != "" && !strings.EqualFold(key, "ALL") {
		return c.Client.Del(ctx, key).Err()
	}
	iter := c.Client.Scan(ctx, 0, "justwatch:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Subscribe applies invalidation messages published on subj.
func (c *RedisCache) Subscribe(nc *nats.Conn, subj string) error {
	if nc == nil || subj == "" {
		return nil
	}
	_, err := nc.Subscribe(subj, func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Invalidate(ctx, string(m.Data)); err != nil {
			c.log.Warn("redis invalidate", zap.String("key", string(m.Data)), zap.Error(err))
		}
	})
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
