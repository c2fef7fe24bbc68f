// Package cooldown 限制同一主体在冷却时间内重复触发某个动作（如重复申请验证码）。
package cooldown

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "teenwell:cooldown:"

// Cooldown 基于 Redis SETNX；rdb 为 nil 时使用进程内表。
type Cooldown struct {
	rdb    *redis.Client
	ttl    time.Duration
	action string
	now    func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

// New 创建冷却器，ttl 默认 60 秒。
func New(rdb *redis.Client, action string, ttl time.Duration) *Cooldown {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cooldown{
		rdb:    rdb,
		ttl:    ttl,
		action: action,
		now:    time.Now,
		local:  make(map[string]time.Time),
	}
}

// Acquire 占用 subject 的冷却窗口。窗口仍在生效时返回 false 与剩余时间。
func (c *Cooldown) Acquire(ctx context.Context, subject string) (bool, time.Duration, error) {
	if c == nil || subject == "" {
		return true, 0, nil
	}
	key := c.key(subject)
	if c.rdb == nil {
		return c.acquireLocal(key)
	}

	ok, err := c.rdb.SetNX(ctx, key, "1", c.ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown setnx: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	left, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil || left < 0 {
		left = c.ttl
	}
	return false, left, nil
}

func (c *Cooldown) acquireLocal(key string) (bool, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if until, ok := c.local[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	c.local[key] = now.Add(c.ttl)
	return true, 0, nil
}

// Release 提前结束冷却，例如邮件发送失败后允许立即重试。
func (c *Cooldown) Release(ctx context.Context, subject string) error {
	if c == nil || subject == "" {
		return nil
	}
	key := c.key(subject)
	if c.rdb == nil {
		c.mu.Lock()
		delete(c.local, key)
		c.mu.Unlock()
		return nil
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cooldown del: %w", err)
	}
	return nil
}

func (c *Cooldown) key(subject string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(subject))))
	return keyPrefix + c.action + ":" + hex.EncodeToString(sum[:])
}
