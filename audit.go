package authcore

import (
	"context"
	"time"
)

// Audit event types emitted by the engine. Stable strings; downstream
// pipelines filter on them.
const (
	AuditLoginSuccess   = "login.success"
	AuditLoginFailure   = "login.failure"
	AuditLoginThrottled = "login.throttled"

	AuditRefreshSuccess   = "refresh.success"
	AuditRefreshFailure   = "refresh.failure"
	AuditRefreshReuse     = "refresh.reuse"
	AuditRefreshExpired   = "refresh.expired"
	AuditRefreshThrottled = "refresh.throttled"

	AuditLogout    = "logout"
	AuditLogoutAll = "logout.all"

	AuditPasswordChange         = "password.change"
	AuditPasswordChangeRejected = "password.change.rejected"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}
