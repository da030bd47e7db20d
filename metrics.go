package authcore

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins on any path.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins on any path.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins rejected by the throttle.
	MetricLoginRateLimited
	// MetricCodeIssued counts one-time codes written and delivered.
	MetricCodeIssued
	// MetricCodeIssueFailure counts issue attempts that did not result in
	// a deliverable code.
	MetricCodeIssueFailure
	// MetricCodeRedeemed counts successful single-use redemptions.
	MetricCodeRedeemed
	// MetricCodeRedeemFailure counts rejected redemptions.
	MetricCodeRedeemFailure
	// MetricSSORejected counts SSO assertions that failed validation.
	MetricSSORejected
	// MetricRefreshSuccess counts access tokens minted via refresh.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricTokenRevoked counts revocation entries written.
	MetricTokenRevoked
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricVerifyFailure counts access token verifications that failed.
	MetricVerifyFailure

	metricIDCount
)

// Metrics is a fixed set of lock-free counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics returns counters honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter. A nil or disabled receiver is a no-op.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
