package harness

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics aggregates results while workers run.
type Metrics struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	sequenced atomic.Int64

	mu sync.Mutex
	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram
	// seen counts occurrences per sequence number; any count > 1 is a
	// duplicated response, the exact failure the harness exists to catch.
	seen map[int]int
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		// Histogram: 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(1, 60_000_000, 3),
		seen:      make(map[int]int),
	}
}

// Record registers one finished request.
func (m *Metrics) Record(duration time.Duration, err error) {
	m.total.Add(1)
	if err != nil {
		m.errors.Add(1)
		return
	}
	m.success.Add(1)

	m.mu.Lock()
	_ = m.histogram.RecordValue(duration.Microseconds())
	m.mu.Unlock()
}

// RecordSequence registers a sequence number observed in a response.
func (m *Metrics) RecordSequence(n int) {
	m.sequenced.Add(1)
	m.mu.Lock()
	m.seen[n]++
	m.mu.Unlock()
}

// Sequenced returns how many responses carried a sequence number.
func (m *Metrics) Sequenced() int64 {
	return m.sequenced.Load()
}

// Unique returns how many distinct sequence numbers were observed and which
// of them arrived more than once.
func (m *Metrics) Unique() (unique int, duplicates []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for n, count := range m.seen {
		unique++
		if count > 1 {
			duplicates = append(duplicates, n)
		}
	}
	return unique, duplicates
}

// Percentile returns the latency at the given percentile.
func (m *Metrics) Percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(m.histogram.ValueAtQuantile(p)) * time.Microsecond
}

// Totals returns the request counters.
func (m *Metrics) Totals() (total, success, errors int64) {
	return m.total.Load(), m.success.Load(), m.errors.Load()
}
