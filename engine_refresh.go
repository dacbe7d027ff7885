package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bizdesk/authcore/internal/rate"
	"github.com/bizdesk/authcore/refresh"
)

// Refresh rotates a refresh token: the presented token is consumed and a
// replacement pair is issued. Exactly one concurrent caller wins; everyone
// else gets ErrInvalidRefreshToken.
//
// A token that was already consumed is a replay. It is audited, counted,
// and, with Security.RevokeAllOnReuse set, escalated by revoking every live
// session of the owning user. An aged-out token returns
// ErrExpiredRefreshToken so clients can distinguish "log in again" from
// "possibly stolen".
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	secret, err := refresh.ParseSecret(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidRefreshToken
	}
	hash := secret.Hash()

	if err := e.limiter.CheckRefresh(ctx, hash.Hex()); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			e.metricInc(MetricRefreshThrottled)
			e.emitAudit(ctx, AuditEvent{EventType: AuditRefreshThrottled})
			return nil, ErrRefreshRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	next, nextSecret, err := refresh.NewRecord(e.config.Refresh.TTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	consumed, err := e.store.Rotate(ctx, hash, next)
	if err != nil {
		return nil, e.rotateError(ctx, err)
	}

	user, err := e.directory.FindUserByID(ctx, consumed.UserID)
	if err != nil || user.Status != UserActive {
		// The rotation already spent the old token and stored the
		// replacement; take the replacement back out so a deleted or
		// disabled account holds no live session.
		_ = e.store.Delete(ctx, next.SecretHash)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			UserID:    consumed.UserID,
			TenantID:  consumed.TenantID,
			Error:     "account not active",
		})
		return nil, ErrInvalidRefreshToken
	}

	claims, err := NewClaims(user)
	if err != nil {
		_ = e.store.Delete(ctx, next.SecretHash)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	accessToken, err := e.tokens.Sign(claims)
	if err != nil {
		_ = e.store.Delete(ctx, next.SecretHash)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRefreshSuccess,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		TokenID:   next.ID,
		Success:   true,
		Metadata:  map[string]string{"rotated_from": consumed.ID},
	})

	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: nextSecret.String(),
		User:         summarize(user, claims.Roles),
	}, nil
}

// rotateError maps a store rotation failure to the client-facing error,
// handling the replay escalation on the way.
func (e *Engine) rotateError(ctx context.Context, err error) error {
	var reuse *refresh.ReuseError
	switch {
	case errors.As(err, &reuse):
		e.metricInc(MetricRefreshReuseDetected)
		event := AuditEvent{
			EventType: AuditRefreshReuse,
			UserID:    reuse.UserID,
			TenantID:  reuse.TenantID,
			Error:     "refresh token replayed",
		}
		if e.config.Security.RevokeAllOnReuse && reuse.UserID != "" {
			revoked, delErr := e.store.DeleteAllForUser(ctx, reuse.UserID)
			if delErr == nil {
				e.metrics.Add(MetricTokensRevoked, uint64(revoked))
				event.Metadata = map[string]string{
					"revoked_sessions": strconv.FormatInt(revoked, 10),
				}
			}
		}
		e.emitAudit(ctx, event)
		return ErrInvalidRefreshToken

	case errors.Is(err, refresh.ErrExpired):
		e.metricInc(MetricRefreshExpired)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshExpired,
			Error:     "refresh token expired",
		})
		return ErrExpiredRefreshToken

	case errors.Is(err, refresh.ErrNotFound):
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRefreshFailure,
			Error:     "unknown refresh token",
		})
		return ErrInvalidRefreshToken

	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}
