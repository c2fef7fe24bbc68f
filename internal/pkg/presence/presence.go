// Package presence 记录用户最近是否活跃，用于会话列表中的在线状态。
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "teenwell:presence:"

// Tracker 在线状态记录器：Redis 中每个活跃用户一个带 TTL 的键；rdb 为 nil 时用进程内表。
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

// New 创建记录器，ttl 默认 5 分钟。
func New(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Tracker{rdb: rdb, ttl: ttl, now: time.Now, local: make(map[string]time.Time)}
}

// Touch 标记用户活跃。
func (t *Tracker) Touch(ctx context.Context, userID string) error {
	if t.rdb == nil {
		t.mu.Lock()
		t.local[userID] = t.now().Add(t.ttl)
		t.mu.Unlock()
		return nil
	}
	return t.rdb.Set(ctx, keyPrefix+userID, "1", t.ttl).Err()
}

// Online 批量查询在线状态，查询失败的用户视为离线。
func (t *Tracker) Online(ctx context.Context, userIDs ...string) map[string]bool {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out
	}
	if t.rdb == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		now := t.now()
		for _, id := range userIDs {
			until, ok := t.local[id]
			out[id] = ok && now.Before(until)
		}
		return out
	}

	pipe := t.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.Exists(ctx, keyPrefix+id)
	}
	_, _ = pipe.Exec(ctx)
	for i, id := range userIDs {
		n, err := cmds[i].Result()
		out[id] = err == nil && n > 0
	}
	return out
}
