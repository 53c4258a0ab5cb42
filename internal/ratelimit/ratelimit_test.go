package ratelimit

import (
	"context"
	"testing"
	"time"

	"usage-billing-service/internal/biz"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int64, window time.Duration) (biz.RateLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	conf := &biz.BillingConfig{RateLimitWindow: window, RateLimitMax: max}
	return NewFixedWindowLimiter(rdb, conf, log.DefaultLogger), mr
}

func TestFixedWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to max within window", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 5, 10*time.Second)

		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, "usage:cust_1")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, err := limiter.Allow(ctx, "usage:cust_1")
		require.NoError(t, err)
		assert.False(t, allowed, "6th request should be rejected")
	})

	t.Run("keys are isolated per customer", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, 10*time.Second)

		allowed, err := limiter.Allow(ctx, "usage:cust_a")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "usage:cust_b")
		require.NoError(t, err)
		assert.True(t, allowed, "another customer uses a separate counter")

		allowed, err = limiter.Allow(ctx, "usage:cust_a")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		limiter, mr := newTestLimiter(t, 1, 10*time.Second)

		allowed, err := limiter.Allow(ctx, "usage:cust_1")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "usage:cust_1")
		require.NoError(t, err)
		assert.False(t, allowed)

		mr.FastForward(11 * time.Second)

		allowed, err = limiter.Allow(ctx, "usage:cust_1")
		require.NoError(t, err)
		assert.True(t, allowed, "counter resets after the window expires")
	})
}
