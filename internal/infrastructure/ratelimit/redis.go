package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okhomenko/eventgate/internal/config"
)

// NewRedisClient connects to Redis for rate limiting. A nil client is
// returned when no address is configured or the server is unreachable;
// callers degrade by disabling rate limiting.
func NewRedisClient(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		return nil
	}

	return client
}

// Limiter is a fixed-window counter over Redis. It fails open: a Redis error
// never blocks a request.
type Limiter struct {
	client   *redis.Client
	limit    int
	interval time.Duration
	logger   *slog.Logger
}

func NewLimiter(client *redis.Client, cfg config.RedisConfig, logger *slog.Logger) *Limiter {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 60
	}
	interval := cfg.RateInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Limiter{
		client:   client,
		limit:    limit,
		interval: interval,
		logger:   logger,
	}
}

// Allow consumes one request from the window for key. The second return is
// the suggested Retry-After in seconds when the request is rejected.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int) {
	if l.client == nil {
		return true, 0
	}

	window := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.interval.Seconds()))

	count, err := l.client.Incr(ctx, window).Result()
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request", "key", key, "error", err)
		return true, 0
	}
	if count == 1 {
		if err := l.client.Expire(ctx, window, l.interval).Err(); err != nil {
			l.logger.Warn("rate limit expire failed", "key", key, "error", err)
		}
	}

	if count > int64(l.limit) {
		return false, int(l.interval.Seconds())
	}
	return true, 0
}
