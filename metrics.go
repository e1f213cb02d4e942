package authcore

import (
	"sync/atomic"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricSignInSuccess MetricID = iota
	MetricSignInFailure
	MetricSignInRateLimited
	MetricSignUpSuccess
	MetricSignUpDuplicate
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricSignOut
	MetricBearerResolved
	MetricBearerRejected
	MetricAPIKeyResolved
	MetricAPIKeyRejected
	MetricAuthzDenied
	MetricTwoFactorEnabled
	MetricTwoFactorDisabled
	MetricTwoFactorFailure
	MetricFederatedSignIn
	MetricAPIKeyCreated
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's lock-free counter core. Exporters read it via
// Snapshot; a nil or disabled Metrics makes every operation a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: !cfg.Disabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if !m.Enabled() || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter. Counters are read individually, so a
// snapshot is not a single atomic cut across all of them.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if !m.Enabled() {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}

// Name returns the stable exposition name for a metric ID.
func (id MetricID) Name() string {
	switch id {
	case MetricSignInSuccess:
		return "signin_success_total"
	case MetricSignInFailure:
		return "signin_failure_total"
	case MetricSignInRateLimited:
		return "signin_rate_limited_total"
	case MetricSignUpSuccess:
		return "signup_success_total"
	case MetricSignUpDuplicate:
		return "signup_duplicate_total"
	case MetricRefreshSuccess:
		return "refresh_success_total"
	case MetricRefreshFailure:
		return "refresh_failure_total"
	case MetricRefreshReuseDetected:
		return "refresh_reuse_detected_total"
	case MetricSignOut:
		return "signout_total"
	case MetricBearerResolved:
		return "bearer_resolved_total"
	case MetricBearerRejected:
		return "bearer_rejected_total"
	case MetricAPIKeyResolved:
		return "apikey_resolved_total"
	case MetricAPIKeyRejected:
		return "apikey_rejected_total"
	case MetricAuthzDenied:
		return "authz_denied_total"
	case MetricTwoFactorEnabled:
		return "twofactor_enabled_total"
	case MetricTwoFactorDisabled:
		return "twofactor_disabled_total"
	case MetricTwoFactorFailure:
		return "twofactor_failure_total"
	case MetricFederatedSignIn:
		return "federated_signin_total"
	case MetricAPIKeyCreated:
		return "apikey_created_total"
	default:
		return "unknown"
	}
}

// MetricIDs returns every defined metric ID in order, for exporters.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}
