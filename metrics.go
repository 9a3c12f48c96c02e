package authcore

import "sync/atomic"

// MetricID identifies one counter in the fixed metric set.
type MetricID uint16

const (
	MetricSignUpSuccess MetricID = iota
	MetricSignUpFailure
	MetricSignUpRateLimited
	MetricSignUpNeedsVerification
	MetricSignInSuccess
	MetricSignInFailure
	MetricSignOut
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshDeduped
	MetricAutoRefreshExhausted
	MetricSessionRestored
	MetricSessionCleared
	MetricProfileCreated
	MetricProfileCreationFailed
	MetricProfileUpdated
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricVerificationResent
	MetricVerificationCompleted
	metricIDCount
)

// metricNames index by MetricID; consumed by exporters.
var metricNames = [metricIDCount]string{
	MetricSignUpSuccess:           "signup_success",
	MetricSignUpFailure:           "signup_failure",
	MetricSignUpRateLimited:       "signup_rate_limited",
	MetricSignUpNeedsVerification: "signup_needs_verification",
	MetricSignInSuccess:           "signin_success",
	MetricSignInFailure:           "signin_failure",
	MetricSignOut:                 "signout",
	MetricRefreshSuccess:          "refresh_success",
	MetricRefreshFailure:          "refresh_failure",
	MetricRefreshDeduped:          "refresh_deduped",
	MetricAutoRefreshExhausted:    "auto_refresh_exhausted",
	MetricSessionRestored:         "session_restored",
	MetricSessionCleared:          "session_cleared",
	MetricProfileCreated:          "profile_created",
	MetricProfileCreationFailed:   "profile_creation_failed",
	MetricProfileUpdated:          "profile_updated",
	MetricPasswordResetRequest:    "password_reset_request",
	MetricPasswordResetSuccess:    "password_reset_success",
	MetricPasswordResetFailure:    "password_reset_failure",
	MetricVerificationResent:      "verification_resent",
	MetricVerificationCompleted:   "verification_completed",
}

// Name returns the stable exporter-facing name for id, or "" for an
// out-of-range id.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return ""
	}
	return metricNames[id]
}

// MetricIDs returns every defined metric id in order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the in-process counter set. A disabled or nil Metrics is
// safe to use and records nothing.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments one counter. No-op when disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current value of one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter at one instant.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
