package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when the attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds throttle tuning parameters.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// Limiter enforces per-identifier and per-IP sign-in budgets using Redis
// counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// CheckSignIn reports whether the identifier+IP pair is still within the
// budget. Returns ErrRateLimited when exhausted.
func (l *Limiter) CheckSignIn(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, identifierKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// IncrementSignIn records a failed sign-in attempt for the pair.
func (l *Limiter) IncrementSignIn(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, identifierKey(identifier))
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, ipKey(ip))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetSignIn clears the counters after a successful sign-in.
func (l *Limiter) ResetSignIn(ctx context.Context, identifier, ip string) error {
	keys := []string{identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, ipKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func identifierKey(identifier string) string {
	return "as:" + identifier
}

func ipKey(ip string) string {
	return "asi:" + ip
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only on the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
