package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/customeros/waitlist/internal/tracing"
)

const keyPrefix = "waitlist:rl"

// FixedWindowLimiter counts requests per key in fixed windows stored in redis.
type FixedWindowLimiter struct {
	client   redis.UniversalClient
	requests int
	window   time.Duration
	now      func() time.Time
}

func NewFixedWindowLimiter(client redis.UniversalClient, requests int, window time.Duration) *FixedWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		client:   client,
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	return redis.NewClient(opts), nil
}

// Allow increments the counter for key and reports whether the request fits in the
// current window. When it does not, the duration until the window resets is returned.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FixedWindowLimiter.Allow")
	defer span.Finish()
	tracing.TagComponentRedis(span)

	if l.requests <= 0 {
		return true, 0, nil
	}

	now := l.now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", keyPrefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return false, 0, errors.Wrap(err, "rate limit counter")
	}

	count := incr.Val()
	span.LogKV("count", count)
	if count > int64(l.requests) {
		return false, windowStart.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}
