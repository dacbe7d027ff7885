package authcore

import (
	"context"
	"io"

	internalaudit "github.com/bizdesk/authcore/internal/audit"
	internalmetrics "github.com/bizdesk/authcore/internal/metrics"
	"github.com/bizdesk/authcore/token"
)

// UserStatus is the lifecycle state of a user account, owned by the host's
// user management. Only active users can log in or refresh.
type UserStatus uint8

const (
	UserActive UserStatus = iota
	UserDisabled
	UserLocked
)

func (s UserStatus) String() string {
	switch s {
	case UserActive:
		return "active"
	case UserDisabled:
		return "disabled"
	case UserLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// RoleAssignment grants one role within one tenant. Assignments outside the
// user's home tenant are dropped when claims are built.
type RoleAssignment struct {
	RoleID   string
	TenantID string
}

// UserRecord is the account data the engine reads from the host's user
// store. PasswordHash is either an argon2id PHC string or a legacy bcrypt
// hash.
type UserRecord struct {
	ID           string
	Email        string
	TenantID     string
	PasswordHash string
	Status       UserStatus
	Roles        []RoleAssignment
}

// UserDirectory is the host-side user store. Implementations return
// ErrUserNotFound when no record matches; any other error is treated as an
// infrastructure fault.
//
// UpdatePasswordHash is the engine's only write: password changes and
// transparent hash upgrades on login.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (UserRecord, error)
	FindUserByID(ctx context.Context, userID string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Claims is the verified content of an access token.
type Claims = token.Claims

// UserSummary is the client-facing slice of a UserRecord.
type UserSummary struct {
	ID       string
	Email    string
	TenantID string
	Roles    []string
}

// LoginResult is the session pair issued by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserSummary
}

// RefreshResult is the replacement pair issued by a successful rotation.
// The presented refresh token is spent whether or not the caller stores
// these.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	User         UserSummary
}

// AuditEvent is a structured security event emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvents from the engine's async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON event per line to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies one counter or histogram in the in-process metrics.
type MetricID = internalmetrics.ID

const (
	MetricLoginSuccess           = internalmetrics.MetricLoginSuccess
	MetricLoginFailure           = internalmetrics.MetricLoginFailure
	MetricLoginThrottled         = internalmetrics.MetricLoginThrottled
	MetricRefreshSuccess         = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure         = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected   = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshExpired         = internalmetrics.MetricRefreshExpired
	MetricRefreshThrottled       = internalmetrics.MetricRefreshThrottled
	MetricLogout                 = internalmetrics.MetricLogout
	MetricLogoutAll              = internalmetrics.MetricLogoutAll
	MetricTokensRevoked          = internalmetrics.MetricTokensRevoked
	MetricPasswordChangeSuccess  = internalmetrics.MetricPasswordChangeSuccess
	MetricPasswordChangeRejected = internalmetrics.MetricPasswordChangeRejected
	MetricVerifyFailure          = internalmetrics.MetricVerifyFailure
	MetricVerifyLatency          = internalmetrics.MetricVerifyLatency
)

// Metrics holds the engine's atomic counters and optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics builds a Metrics set from config. Disabled metrics are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
