package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config tunes the fixed-window throttles. A zero max disables the
// corresponding check.
type Config struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration

	// ThrottleByIP adds a second login counter keyed by client IP, so a
	// spray across many emails from one address still trips.
	ThrottleByIP bool

	MaxRefreshAttempts int
	RefreshWindow      time.Duration
}

// Limiter enforces login and refresh attempt budgets on Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter over the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

func loginEmailKey(email string) string { return "lg:" + email }
func loginIPKey(ip string) string       { return "lgi:" + ip }
func refreshKey(tokenID string) string  { return "rf:" + tokenID }

// CheckLogin reports whether a login attempt for email from ip is still
// within budget. Read-only; failures are recorded separately so a correct
// password never increments a counter.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	if err := l.checkCounter(ctx, loginEmailKey(email), l.config.MaxLoginAttempts); err != nil {
		return err
	}
	if l.config.ThrottleByIP && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}
	return nil
}

// RecordLoginFailure counts a failed attempt and reports ErrLimited once the
// budget is exhausted.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	count, err := l.bump(ctx, loginEmailKey(email), l.config.LoginWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrLimited
	}

	if l.config.ThrottleByIP && ip != "" {
		count, err = l.bump(ctx, loginIPKey(ip), l.config.LoginWindow)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrLimited
		}
	}
	return nil
}

// ResetLogin clears the failure counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	keys := []string{loginEmailKey(email)}
	if l.config.ThrottleByIP && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts a rotation attempt against the record's budget. Every
// attempt counts; a stolen token replayed in a loop should trip this even
// when each attempt fails.
func (l *Limiter) CheckRefresh(ctx context.Context, tokenID string) error {
	if l == nil || l.config.MaxRefreshAttempts <= 0 {
		return nil
	}

	count, err := l.bump(ctx, refreshKey(tokenID), l.config.RefreshWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrLimited
	}
	return nil
}

// LoginAttempts returns the current failure count for an email. Missing keys
// read as zero.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, loginEmailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, max int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// A spent budget blocks the next attempt, not the one after it.
	if count >= int64(max) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) bump(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
