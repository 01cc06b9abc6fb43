package accessguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential attempts.
	MetricLoginFailure
	// MetricLockoutTriggered counts lockouts installed.
	MetricLockoutTriggered
	// MetricLoginLockedOut counts logins rejected during a cooldown.
	MetricLoginLockedOut
	// MetricSessionCreated counts sessions issued.
	MetricSessionCreated
	// MetricSessionExpired counts sessions found expired at validation.
	MetricSessionExpired
	// MetricSessionRevoked counts explicit logouts.
	MetricSessionRevoked
	// MetricValidateSuccess counts successful session validations.
	MetricValidateSuccess
	// MetricValidateFailure counts validations of missing or revoked tokens.
	MetricValidateFailure
	// MetricAuthorizeAllowed counts permitted authorization checks.
	MetricAuthorizeAllowed
	// MetricAuthorizeDenied counts denied authorization checks.
	MetricAuthorizeDenied
	// MetricFieldsRedacted counts fields masked by Redact.
	MetricFieldsRedacted
	// MetricAccountCreated counts accounts created.
	MetricAccountCreated
	// MetricAccountRoleChanged counts role updates.
	MetricAccountRoleChanged
	// MetricAccountDeactivated counts deactivations.
	MetricAccountDeactivated
	// MetricPasswordChanged counts password changes.
	MetricPasswordChanged
	// MetricLogoutAll counts bulk session revocations.
	MetricLogoutAll
	// MetricAuditRetried counts audit appends that needed a retry.
	MetricAuditRetried
	// MetricAuditFallback counts entries parked on the fallback queue.
	MetricAuditFallback
	// MetricAuditDropped counts entries lost after the fallback filled.
	MetricAuditDropped
	// MetricValidateLatency is the validation latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free in-process counter registry. The zero-cost path
// when disabled is a single branch.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] registry from config.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recording.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments a counter. Safe on a nil receiver.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add increments a counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records a validation latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
