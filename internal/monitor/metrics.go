package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall system performance.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency histograms
	APILatency      *LatencyHistogram
	BacktestLatency *LatencyHistogram
	DBLatency       *LatencyHistogram

	// Counters
	requestsServed  uint64
	backtestsRun    uint64
	backtestsFailed uint64
	staleDiscards   uint64
	paperTrades     uint64
	errorsCount     uint64

	// Gauges and per-topic counts (updated by the session sweeper and Monitor).
	activeSessions int
	eventCounts    map[string]uint64

	// Snapshot
	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with sliding window.
// Stats are computed lazily and cached until the next sample.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool         // Whether samples have changed since last Stats()
	cachedStats LatencyStats // Cached computed stats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		APILatency:      NewLatencyHistogram(1000),
		BacktestLatency: NewLatencyHistogram(200),
		DBLatency:       NewLatencyHistogram(1000),
		eventCounts:     make(map[string]uint64),
		lastUpdate:      time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		// Shift window: remove oldest
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

func (m *SystemMetrics) IncrementRequests() { atomic.AddUint64(&m.requestsServed, 1) }

// IncrementBacktests counts a finished backtest call; failed covers
// transport errors and {error} payloads.
func (m *SystemMetrics) IncrementBacktests(failed bool) {
	atomic.AddUint64(&m.backtestsRun, 1)
	if failed {
		atomic.AddUint64(&m.backtestsFailed, 1)
	}
}

// IncrementStaleDiscards counts results dropped because the strategy changed.
func (m *SystemMetrics) IncrementStaleDiscards() { atomic.AddUint64(&m.staleDiscards, 1) }

func (m *SystemMetrics) IncrementPaperTrades() { atomic.AddUint64(&m.paperTrades, 1) }

// IncrementErrors increments error counter.
func (m *SystemMetrics) IncrementErrors() { atomic.AddUint64(&m.errorsCount, 1) }

// SetActiveSessions updates the live editor session gauge.
func (m *SystemMetrics) SetActiveSessions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeSessions = n
	m.lastUpdate = time.Now()
}

// CountEvent bumps the counter of a bus topic.
func (m *SystemMetrics) CountEvent(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCounts[topic]++
}

// MetricsSnapshot is a point-in-time copy of SystemMetrics.
type MetricsSnapshot struct {
	APILatency      LatencyStats      `json:"api_latency"`
	BacktestLatency LatencyStats      `json:"backtest_latency"`
	DBLatency       LatencyStats      `json:"db_latency"`
	RequestsServed  uint64            `json:"requests_served"`
	BacktestsRun    uint64            `json:"backtests_run"`
	BacktestsFailed uint64            `json:"backtests_failed"`
	StaleDiscards   uint64            `json:"stale_discards"`
	PaperTrades     uint64            `json:"paper_trades"`
	ErrorsCount     uint64            `json:"errors_count"`
	ActiveSessions  int               `json:"active_sessions"`
	EventCounts     map[string]uint64 `json:"event_counts"`
	GoroutineCount  int               `json:"goroutine_count"`
	HeapAlloc       uint64            `json:"heap_alloc_bytes"`
	HeapSys         uint64            `json:"heap_sys_bytes"`
	Timestamp       time.Time         `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	sessions := m.activeSessions
	counts := make(map[string]uint64, len(m.eventCounts))
	for k, v := range m.eventCounts {
		counts[k] = v
	}
	m.mu.RUnlock()

	return MetricsSnapshot{
		APILatency:      m.APILatency.Stats(),
		BacktestLatency: m.BacktestLatency.Stats(),
		DBLatency:       m.DBLatency.Stats(),
		RequestsServed:  atomic.LoadUint64(&m.requestsServed),
		BacktestsRun:    atomic.LoadUint64(&m.backtestsRun),
		BacktestsFailed: atomic.LoadUint64(&m.backtestsFailed),
		StaleDiscards:   atomic.LoadUint64(&m.staleDiscards),
		PaperTrades:     atomic.LoadUint64(&m.paperTrades),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		ActiveSessions:  sessions,
		EventCounts:     counts,
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		HeapSys:         memStats.HeapSys,
		Timestamp:       time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
