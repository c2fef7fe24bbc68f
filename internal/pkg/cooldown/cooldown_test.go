package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCooldown_Redis(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	c := New(rdb, "otp", time.Minute)
	ctx := context.Background()

	ok, _, err := c.Acquire(ctx, "Kid@Example.com")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	// 邮箱大小写不同视为同一主体。
	ok, left, err := c.Acquire(ctx, "kid@example.com")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("expected second acquire to be throttled")
	}
	if left <= 0 || left > time.Minute {
		t.Fatalf("unexpected remaining cooldown %v", left)
	}

	s.FastForward(61 * time.Second)
	ok, _, err = c.Acquire(ctx, "kid@example.com")
	if err != nil || !ok {
		t.Fatalf("acquire after ttl: ok=%v err=%v", ok, err)
	}

	if err := c.Release(ctx, "kid@example.com"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _, _ = c.Acquire(ctx, "kid@example.com")
	if !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestCooldown_Local(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(nil, "otp", time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _, _ := c.Acquire(ctx, "a@example.com"); !ok {
		t.Fatalf("first acquire should pass")
	}
	if ok, left, _ := c.Acquire(ctx, "a@example.com"); ok || left != time.Minute {
		t.Fatalf("expected throttle with 1m left, got ok=%v left=%v", ok, left)
	}
	if ok, _, _ := c.Acquire(ctx, "b@example.com"); !ok {
		t.Fatalf("other subject should pass")
	}

	now = now.Add(time.Minute)
	if ok, _, _ := c.Acquire(ctx, "a@example.com"); !ok {
		t.Fatalf("acquire after window should pass")
	}
}
