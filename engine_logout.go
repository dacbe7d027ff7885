package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bizdesk/authcore/refresh"
)

// Logout revokes one refresh token. Idempotent: a malformed, unknown, or
// already-revoked token succeeds silently, so clients can always clear
// local state. The token is deleted only when it belongs to userID; a
// mismatch is ignored rather than leaking whether the token exists.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	secret, err := refresh.ParseSecret(refreshToken)
	if err != nil {
		return nil
	}
	hash := secret.Hash()

	record, err := e.store.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) || errors.Is(err, refresh.ErrExpired) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if record.UserID != userID {
		return nil
	}

	if err := e.store.Delete(ctx, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		UserID:    record.UserID,
		TenantID:  record.TenantID,
		TokenID:   record.ID,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every live refresh token of a user and reports how many
// were removed. Zero is a successful no-op. Outstanding access tokens stay
// valid until they expire; keep access TTLs short if that window matters.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int64, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	revoked, err := e.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricLogoutAll)
	e.metrics.Add(MetricTokensRevoked, uint64(revoked))
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogoutAll,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"revoked_sessions": strconv.FormatInt(revoked, 10)},
	})
	return revoked, nil
}

// SweepExpired removes refresh records past their expiry. Stores with
// native TTLs expire keys themselves and report zero; the SQL store needs a
// periodic call from a host cron or ticker.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	removed, err := e.store.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return removed, nil
}
