package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Decision 限流判定结果
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter 滑动窗口限流器
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 检查是否允许请求（滑动窗口算法）；允许时记录本次请求
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	pipe := l.client.rdb.Pipeline()
	// 移除窗口外的请求
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil && !IsNil(err) {
		span.RecordError(err)
		return Decision{}, err
	}

	count := int(countCmd.Val())
	span.SetAttributes(attribute.Int("ratelimit.current_count", count))

	if count >= limit {
		d := Decision{Limit: limit, RetryAfter: window}
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			d.RetryAfter = retryAfter(int64(oldest[0].Score), now, window)
		}
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return d, nil
	}

	pipe = l.client.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d-%s", now, uuid.NewString()),
	})
	pipe.Expire(ctx, key, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return Decision{}, err
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return Decision{Allowed: true, Limit: limit, Remaining: limit - count - 1}, nil
}

// retryAfter 最早一条请求滑出窗口所需时间，至少 1ms
func retryAfter(oldestMs, nowMs int64, window time.Duration) time.Duration {
	wait := time.Duration(oldestMs+window.Milliseconds()-nowMs) * time.Millisecond
	if wait < time.Millisecond {
		return time.Millisecond
	}
	return wait
}

// BuildRateLimitKey 构建限流键
func BuildRateLimitKey(clientKey, route string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientKey, route)
}
