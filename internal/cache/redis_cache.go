package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-chat-relay/internal/config"
)

const defaultPrefix = "relay:reply"

// RedisReplyCache is a ReplyCache backed by Redis string keys with a TTL.
type RedisReplyCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisReplyCache connects to cfg.Addr and pings it once.
func NewRedisReplyCache(cfg config.CacheConfig) (*RedisReplyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisReplyCacheFromClient(client, defaultPrefix, cfg.TTL), nil
}

// NewRedisReplyCacheFromClient wraps an existing client.
func NewRedisReplyCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisReplyCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisReplyCache{client: client, prefix: prefix, ttl: ttl}
}

// Key hashes the prompt so arbitrary user text never lands in key names.
func (c *RedisReplyCache) Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// Get implements ReplyCache.
func (c *RedisReplyCache) Get(ctx context.Context, prompt string) (*Entry, error) {
	data, err := c.client.Get(ctx, c.Key(prompt)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &e, nil
}

// Set implements ReplyCache.
func (c *RedisReplyCache) Set(ctx context.Context, prompt string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(prompt), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisReplyCache) Close() error {
	return c.client.Close()
}
