package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-chat-relay/internal/config"
)

func TestKey_StableAndPrefixed(t *testing.T) {
	c := NewRedisReplyCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", time.Minute)
	defer c.Close()

	a, b := c.Key("hola"), c.Key("hola")
	if a != b {
		t.Fatalf("key not stable: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, defaultPrefix+":") {
		t.Fatalf("missing prefix: %q", a)
	}
	if c.Key("adiós") == a {
		t.Fatal("distinct prompts share a key")
	}
	if strings.Contains(a, "hola") {
		t.Fatal("raw prompt leaked into key")
	}
}

func TestNewRedisReplyCache_Unreachable(t *testing.T) {
	_, err := NewRedisReplyCache(config.CacheConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestGet_ErrorIsNotMiss(t *testing.T) {
	c := NewRedisReplyCacheFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}), "t", time.Minute)
	defer c.Close()

	_, err := c.Get(context.Background(), "hola")
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want transport error, got %v", err)
	}
	if err := c.Set(context.Background(), "hola", &Entry{Text: "x"}); err == nil {
		t.Fatal("expected set error")
	}
}
