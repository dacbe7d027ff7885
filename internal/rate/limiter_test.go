package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginWindow: time.Minute})

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "amy@example.com", ""); err != nil {
			t.Fatalf("attempt %d blocked early: %v", i, err)
		}
		if err := l.RecordLoginFailure(ctx, "amy@example.com", ""); err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
	}

	if err := l.RecordLoginFailure(ctx, "amy@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited on fourth failure, got %v", err)
	}
	if err := l.CheckLogin(ctx, "amy@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected CheckLogin to report the exhausted budget, got %v", err)
	}

	// Other identifiers are unaffected.
	if err := l.CheckLogin(ctx, "bob@example.com", ""); err != nil {
		t.Fatalf("unrelated email throttled: %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginWindow: time.Minute})

	for i := 0; i < 2; i++ {
		_ = l.RecordLoginFailure(ctx, "amy@example.com", "")
	}
	if err := l.CheckLogin(ctx, "amy@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected limited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "amy@example.com", ""); err != nil {
		t.Fatalf("expected fresh window after expiry, got %v", err)
	}
}

func TestLoginIPThrottle(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 2, LoginWindow: time.Minute, ThrottleByIP: true})

	// Spray across emails from one address.
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		err := l.RecordLoginFailure(ctx, email, "10.0.0.9")
		if email == "c@example.com" {
			if !errors.Is(err, ErrLimited) {
				t.Fatalf("expected IP budget exhausted, got %v", err)
			}
		} else if err != nil {
			t.Fatalf("record failure for %s: %v", email, err)
		}
	}

	if err := l.CheckLogin(ctx, "d@example.com", "10.0.0.9"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected new email from hot IP to be throttled, got %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginWindow: time.Minute})

	_ = l.RecordLoginFailure(ctx, "amy@example.com", "")
	_ = l.RecordLoginFailure(ctx, "amy@example.com", "")
	if err := l.CheckLogin(ctx, "amy@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected limited, got %v", err)
	}

	if err := l.ResetLogin(ctx, "amy@example.com", ""); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "amy@example.com", ""); err != nil {
		t.Fatalf("expected clean slate after reset, got %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "amy@example.com"); n != 0 {
		t.Fatalf("expected zero attempts after reset, got %d", n)
	}
}

func TestRefreshBudget(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{MaxRefreshAttempts: 2, RefreshWindow: time.Minute})

	if err := l.CheckRefresh(ctx, "rec-1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "rec-1"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "rec-1"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected third refresh limited, got %v", err)
	}
	if err := l.CheckRefresh(ctx, "rec-2"); err != nil {
		t.Fatalf("unrelated record throttled: %v", err)
	}
}

func TestDisabledLimitsAreNoOps(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{})

	for i := 0; i < 50; i++ {
		if err := l.RecordLoginFailure(ctx, "amy@example.com", "1.2.3.4"); err != nil {
			t.Fatalf("disabled login throttle errored: %v", err)
		}
		if err := l.CheckRefresh(ctx, "rec-1"); err != nil {
			t.Fatalf("disabled refresh throttle errored: %v", err)
		}
	}
}

func TestRedisDownReportsUnavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginWindow: time.Minute})

	mr.Close()

	if err := l.RecordLoginFailure(ctx, "amy@example.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
