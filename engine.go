package authcore

import (
	"time"

	"github.com/bizdesk/authcore/internal/audit"
	"github.com/bizdesk/authcore/internal/metrics"
	"github.com/bizdesk/authcore/internal/rate"
	"github.com/bizdesk/authcore/password"
	"github.com/bizdesk/authcore/refresh"
	"github.com/bizdesk/authcore/token"
)

// Engine is the authentication core. Construct one through [Builder]; the
// zero value is unusable. All methods are safe for concurrent use.
type Engine struct {
	config    Config
	directory UserDirectory
	tokens    *token.Manager
	passwords *password.Hasher
	store     refresh.Store
	limiter   *rate.Limiter
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close; it does not close the refresh store or Redis client, which
// the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters and
// histograms. Always non-nil maps, even with metrics disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// VerifyAccessToken validates signature, expiry, issuer, and audience of an
// access token and returns its claims. Every failure maps to
// ErrUnauthorized; the concrete parse error is never exposed to clients.
//
// This is the hot path: purely local, no store round-trip.
func (e *Engine) VerifyAccessToken(tokenStr string) (*Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.tokens.Verify(tokenStr)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrUnauthorized
	}
	return claims, nil
}
