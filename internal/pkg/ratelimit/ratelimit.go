// Package ratelimit 实现按客户端键计数的令牌桶。
//
// 有 Redis 时令牌桶状态保存在 Redis 中，多实例共享；Redis 不可用时
// 退回进程内的 golang.org/x/time/rate 限流器。
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + (delta * rate) / 1000.0)

local allowed = tokens >= requested
local wait_ms = 0
if allowed then
  tokens = tokens - requested
else
  wait_ms = math.ceil((requested - tokens) * 1000.0 / rate)
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, wait_ms}
`

// Limiter 令牌桶限流器。rate 为每秒补充的令牌数，burst 为桶容量。
type Limiter struct {
	rdb    *redis.Client
	prefix string
	rate   float64
	burst  float64
	logger *slog.Logger
	script *redis.Script

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// New 创建限流器。rdb 为 nil 时只使用进程内限流；rate 或 burst 不大于 0 时不限流。
func New(rdb *redis.Client, logger *slog.Logger, prefix string, ratePerSec, burst float64) *Limiter {
	if prefix == "" {
		prefix = "teenwell:ratelimit"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		rate:   ratePerSec,
		burst:  burst,
		logger: logger,
		script: redis.NewScript(tokenBucketLua),
		local:  make(map[string]*rate.Limiter),
	}
}

// Allow 为 key 消耗一个令牌。拒绝时返回建议的重试等待时间。
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return true, 0
	}
	if l.rdb != nil {
		allowed, wait, err := l.allowRedis(ctx, key)
		if err == nil {
			return allowed, wait
		}
		metrics.RateLimitBackendErrorsTotal.Inc()
		l.logger.Warn("redis rate limiter failed, using local limiter", slog.String("error", err.Error()))
	}
	return l.allowLocal(key)
}

func (l *Limiter) allowRedis(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.rate, l.burst, now, 1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit eval: %w", err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("ratelimit invalid result")
	}
	return toInt64(values[0]) == 1, time.Duration(toInt64(values[1])) * time.Millisecond, nil
}

func (l *Limiter) allowLocal(key string) (bool, time.Duration) {
	l.mu.Lock()
	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rate), int(l.burst))
		l.local[key] = lim
	}
	l.mu.Unlock()

	r := lim.Reserve()
	if !r.OK() {
		return false, time.Second
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d
	}
	return true, 0
}

// Prune 清理进程内的限流器，超过 max 个时整体重建。
func (l *Limiter) Prune(max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.local) > max {
		l.local = make(map[string]*rate.Limiter)
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
