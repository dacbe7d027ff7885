package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bizdesk/authcore/internal/rate"
	"github.com/bizdesk/authcore/refresh"
)

// Login verifies email and password and, on success, issues a signed access
// token and a fresh refresh token. Unknown email, wrong password, and a
// non-active account all return ErrInvalidCredentials with identical timing
// characteristics as far as practical; the audit trail records the real
// reason.
//
// With throttling configured, an exhausted attempt budget returns
// ErrLoginRateLimited before any credential work happens.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			e.metricInc(MetricLoginThrottled)
			e.emitAudit(ctx, AuditEvent{
				EventType: AuditLoginThrottled,
				Metadata:  map[string]string{"email": email},
			})
			return nil, ErrLoginRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	user, err := e.directory.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.failLogin(ctx, email, ip, "", "unknown email")
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := e.passwords.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, email, ip, user.ID, "password mismatch")
	}

	if user.Status != UserActive {
		return nil, e.failLogin(ctx, email, ip, user.ID, "account "+user.Status.String())
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, user, pass)
	}

	if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	record, secret, err := refresh.NewRecord(e.config.Refresh.TTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	record.UserID = user.ID
	record.TenantID = user.TenantID
	if err := e.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	claims, err := NewClaims(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	accessToken, err := e.tokens.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		TokenID:   record.ID,
		Success:   true,
	})

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: secret.String(),
		User:         summarize(user, claims.Roles),
	}, nil
}

// failLogin records the failed attempt against the throttle, counts and
// audits it, and returns the conflated client-facing error.
func (e *Engine) failLogin(ctx context.Context, email, ip, userID, reason string) error {
	if err := e.limiter.RecordLoginFailure(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrLimited) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginFailure,
		UserID:    userID,
		Error:     reason,
		Metadata:  map[string]string{"email": email},
	})
	return ErrInvalidCredentials
}

// maybeUpgradeHash transparently rehashes a verified password when the
// stored hash is bcrypt or uses weaker argon2id parameters. Best effort: a
// failure here never fails the login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user UserRecord, pass string) {
	stale, err := e.passwords.NeedsRehash(user.PasswordHash)
	if err != nil || !stale {
		return
	}
	newHash, err := e.passwords.Hash(pass)
	if err != nil {
		return
	}
	_ = e.directory.UpdatePasswordHash(ctx, user.ID, newHash)
}
