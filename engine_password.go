package authcore

import (
	"context"
	"errors"
	"fmt"
)

// ChangePassword replaces a user's password after verifying the current
// one. The new password must differ from the current password and satisfy
// the configured hashing policy. On success every refresh token of the user
// is revoked; the caller is expected to log the user back in with the new
// credentials.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	user, err := e.directory.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := e.passwords.Verify(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeRejected)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditPasswordChangeRejected,
			UserID:    user.ID,
			TenantID:  user.TenantID,
			Error:     "current password mismatch",
		})
		return ErrInvalidCredentials
	}

	if same, err := e.passwords.Verify(newPassword, user.PasswordHash); err == nil && same {
		e.metricInc(MetricPasswordChangeRejected)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditPasswordChangeRejected,
			UserID:    user.ID,
			TenantID:  user.TenantID,
			Error:     "new password matches current",
		})
		return ErrPasswordReuse
	}

	newHash, err := e.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.directory.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// Every open session dies with the old password.
	if _, err := e.store.DeleteAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditPasswordChange,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}
