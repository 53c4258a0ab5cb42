// Package ratelimit 基于 Redis 的固定窗口限流
//
// 计数放在 Redis 而不是进程内存，多实例部署下限流额度全局一致，
// 实例重启也不会清零放行一波突发
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/wire"
)

// ProviderSet is ratelimit providers.
var ProviderSet = wire.NewSet(NewFixedWindowLimiter)

// FixedWindowLimiter 固定窗口限流器，实现 biz.RateLimiter
type FixedWindowLimiter struct {
	rdb    *redis.Client
	window time.Duration
	max    int64
	log    *log.Helper
}

// NewFixedWindowLimiter 创建限流器
func NewFixedWindowLimiter(rdb *redis.Client, conf *biz.BillingConfig, logger log.Logger) biz.RateLimiter {
	return &FixedWindowLimiter{
		rdb:    rdb,
		window: conf.RateLimitWindow,
		max:    conf.RateLimitMax,
		log:    log.NewHelper(logger),
	}
}

// Allow 判断 key 在当前窗口内是否还有配额
//
// INCR 后仅在计数为 1（窗口首个请求）时设置过期时间，窗口边界由
// Redis 的 key 过期决定。INCR 与 EXPIRE 之间进程崩溃会留下无过期的
// 计数 key，用 persist 检查兜底补一次过期
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := constants.RedisKeyRateLimit + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.log.Warnf("failed to set rate limit expiry: key=%s, error=%v", redisKey, err)
		}
	} else if count > l.max {
		// 超限时顺手校验 key 带着过期时间，防止 EXPIRE 丢失导致永久封禁
		ttl, terr := l.rdb.TTL(ctx, redisKey).Result()
		if terr == nil && ttl < 0 {
			l.rdb.Expire(ctx, redisKey, l.window)
		}
		return false, nil
	}

	return count <= l.max, nil
}
