package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/masoommulla/project-sub001/internal/pkg/logger"
)

func TestLimiter_RedisBucketPerKey(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l := New(rdb, logger.Discard(), "test:rl", 1, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := l.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatalf("third request should be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("unexpected retry wait %v", wait)
	}

	// 其他客户端的桶不受影响。
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatalf("other key should pass")
	}

	tokensStr, err := rdb.HGet(ctx, "test:rl:1.2.3.4", "tokens").Result()
	if err != nil {
		t.Fatalf("hget tokens: %v", err)
	}
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		t.Fatalf("parse tokens: %v", err)
	}
	if tokens >= 1 {
		t.Fatalf("expected bucket to be drained, got %.2f", tokens)
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l := New(rdb, logger.Discard(), "test:rl", 20, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("second request should be limited")
	}
	time.Sleep(80 * time.Millisecond)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("bucket should refill after 80ms at 20 tokens/s")
	}
}

func TestLimiter_FallsBackWhenRedisDown(t *testing.T) {
	s, rdb := newMiniRedis(t)
	s.Close()

	l := New(rdb, logger.Discard(), "test:rl", 1, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("first request should pass on local limiter")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("second request should be limited on local limiter")
	}
}

func TestLimiter_DisabledAndLocalOnly(t *testing.T) {
	var nilLimiter *Limiter
	if ok, _ := nilLimiter.Allow(context.Background(), "k"); !ok {
		t.Fatalf("nil limiter should allow")
	}

	off := New(nil, nil, "", 0, 0)
	for i := 0; i < 100; i++ {
		if ok, _ := off.Allow(context.Background(), "k"); !ok {
			t.Fatalf("disabled limiter should allow")
		}
	}

	local := New(nil, logger.Discard(), "", 1, 3)
	passed := 0
	for i := 0; i < 10; i++ {
		if ok, _ := local.Allow(context.Background(), "k"); ok {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("expected burst of 3, got %d", passed)
	}
	local.Prune(0)
	if ok, _ := local.Allow(context.Background(), "k"); !ok {
		t.Fatalf("pruned limiter should start with a full bucket")
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return s, rdb
}
