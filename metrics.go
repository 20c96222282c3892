package sessiongate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics store.
type MetricID uint16

const (
	// MetricIssued counts credentials issued.
	MetricIssued MetricID = iota
	// MetricAdmitted counts requests that passed every gate check.
	MetricAdmitted
	// MetricRejectedNoCredential counts requests with no bearer credential.
	MetricRejectedNoCredential
	// MetricRejectedMalformed counts structurally invalid or tampered credentials.
	MetricRejectedMalformed
	// MetricRejectedExpired counts correctly signed but expired credentials.
	MetricRejectedExpired
	// MetricRejectedRevoked counts credentials matched by a ledger entry.
	MetricRejectedRevoked
	// MetricRejectedSuperseded counts credentials issued before the subject's cutoff.
	MetricRejectedSuperseded
	// MetricRejectedUnknownSubject counts credentials naming an unknown account.
	MetricRejectedUnknownSubject
	// MetricRejectedNotAuthorized counts subjects failing the membership predicate.
	MetricRejectedNotAuthorized
	// MetricRejectedStoreUnavailable counts fail-closed rejections on store faults.
	MetricRejectedStoreUnavailable
	// MetricRevokedLogout counts logout revocations written to the ledger.
	MetricRevokedLogout
	// MetricRevokedPasswordChange counts individual password_change revocations.
	MetricRevokedPasswordChange
	// MetricRevokedAdmin counts administrative revocations.
	MetricRevokedAdmin
	// MetricPasswordCutoffStamped counts password-change cutoff writes.
	MetricPasswordCutoffStamped
	// MetricSweepRemoved counts ledger entries removed by maintenance sweeps.
	MetricSweepRemoved
	// MetricAuthenticateLatency is the authenticate latency histogram.
	MetricAuthenticateLatency
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

// Metrics holds lock-free counters and an optional latency histogram.
// When disabled, all operations are no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add increments the counter identified by id by n. Used for sweep removal
// counts, which arrive in batches.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records an authenticate latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of the counter identified by id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histogram buckets.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
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
