package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTracker_Redis(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tr := New(rdb, time.Minute)
	ctx := context.Background()
	if err := tr.Touch(ctx, "u1"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got := tr.Online(ctx, "u1", "u2")
	if !got["u1"] || got["u2"] {
		t.Fatalf("unexpected presence %v", got)
	}

	s.FastForward(2 * time.Minute)
	if tr.Online(ctx, "u1")["u1"] {
		t.Fatalf("presence should expire after ttl")
	}
}

func TestTracker_Local(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr := New(nil, time.Minute)
	tr.now = func() time.Time { return now }
	ctx := context.Background()

	_ = tr.Touch(ctx, "u1")
	if !tr.Online(ctx, "u1")["u1"] {
		t.Fatalf("expected u1 online")
	}
	now = now.Add(time.Minute)
	if tr.Online(ctx, "u1")["u1"] {
		t.Fatalf("expected u1 offline after ttl")
	}
	if len(tr.Online(ctx)) != 0 {
		t.Fatalf("empty query should return empty map")
	}
}
