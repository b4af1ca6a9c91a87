package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisRateLimiter struct {
	client  redis.Cmdable
	closer  func() error
	logger  logrus.FieldLogger
	prefix  string
	timeout time.Duration
}

// NewRedisRateLimiter shares counters between API instances through Redis.
// Redis failures let the request through and are logged.
func NewRedisRateLimiter(addr, password string, db int, logger logrus.FieldLogger) (RateLimiter, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	limiter := newRedisRateLimiter(client, logger)
	limiter.closer = client.Close
	return limiter, nil
}

func newRedisRateLimiter(client redis.Cmdable, logger logrus.FieldLogger) *redisRateLimiter {
	return &redisRateLimiter{
		client:  client,
		logger:  logger,
		prefix:  "studytrack:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) RateDecision {
	if limit <= 0 {
		return RateDecision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logger.WithError(err).WithField("op", "incr").Error("Redis rate limiter error")
		return RateDecision{Allowed: true}
	}
	if counter == 1 {
		rl.expire(ctx, redisKey, window)
	}

	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err == nil && ttl == -1 {
		// The counter lost its expiry, typically after a failed EXPIRE.
		rl.expire(ctx, redisKey, window)
	}
	if err != nil || ttl <= 0 {
		ttl = window
	}

	return RateDecision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

func (rl *redisRateLimiter) expire(ctx context.Context, key string, window time.Duration) {
	if err := rl.client.Expire(ctx, key, window).Err(); err != nil {
		rl.logger.WithError(err).WithField("op", "expire").Error("Redis rate limiter error")
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.closer != nil {
		_ = rl.closer()
	}
}
