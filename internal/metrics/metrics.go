package metrics

import (
	"sync/atomic"
	"time"
)

// ID names one counter or histogram slot.
type ID uint16

const (
	MetricLoginSuccess ID = iota
	MetricLoginFailure
	MetricLoginThrottled
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricRefreshExpired
	MetricRefreshThrottled
	MetricLogout
	MetricLogoutAll
	MetricTokensRevoked
	MetricPasswordChangeSuccess
	MetricPasswordChangeRejected
	MetricVerifyFailure
	MetricVerifyLatency
	IDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type histogram struct {
	buckets [histBucketCount]uint64
}

// Config controls which instruments record.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics is the fixed set of counters and histograms. A nil or disabled
// *Metrics accepts writes and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [IDCount]paddedCounter
	histograms    [IDCount]histogram
}

// Snapshot is a point-in-time copy of every instrument.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id ID) {
	m.Add(id, 1)
}

// Add bumps a counter by n. Bulk operations use it to count affected rows
// in one call.
func (m *Metrics) Add(id ID, n uint64) {
	if m == nil || !m.enabled || id >= IDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records a latency sample. Only the verify histogram exists; other
// IDs are ignored.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= IDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(IDCount)),
		Histograms: make(map[ID][]uint64, 1),
	}
	for id := ID(0); id < IDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
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
