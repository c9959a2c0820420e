package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/events"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSink) Send(m string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestLatencyHistogramStats(t *testing.T) {
	h := NewLatencyHistogram(3)
	for _, v := range []float64{100, 1, 2, 3} {
		h.Record(v)
	}
	st := h.Stats()
	if st.Count != 3 || st.Min != 1 || st.Max != 3 || st.Avg != 2 {
		t.Fatalf("stats=%+v", st)
	}
	h.RecordDuration(4 * time.Millisecond)
	if st := h.Stats(); st.Max != 4 {
		t.Fatalf("cached stats not refreshed: %+v", st)
	}
}

func TestSnapshotCounters(t *testing.T) {
	m := NewSystemMetrics()
	m.IncrementBacktests(false)
	m.IncrementBacktests(true)
	m.IncrementStaleDiscards()
	m.SetActiveSessions(4)
	m.CountEvent("block.created")

	snap := m.GetSnapshot()
	if snap.BacktestsRun != 2 || snap.BacktestsFailed != 1 || snap.StaleDiscards != 1 || snap.ActiveSessions != 4 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.EventCounts["block.created"] != 1 {
		t.Fatalf("event counts=%v", snap.EventCounts)
	}
}

func TestMonitorCountsAndAlerts(t *testing.T) {
	bus := events.NewBus()
	metrics := NewSystemMetrics()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	(&Monitor{Bus: bus, Metrics: metrics, Sink: sink}).Start(ctx)

	bus.Publish(events.EventBlockCreated, events.SessionEvent{Type: events.EventBlockCreated, SessionID: "s"})
	bus.Publish(events.EventBacktestDiscarded, events.SessionEvent{Type: events.EventBacktestDiscarded, SessionID: "s", At: time.Now()})
	bus.Publish(events.EventBacktestCompleted, events.SessionEvent{Type: events.EventBacktestCompleted, SessionID: "s", Data: "no data"})
	bus.Publish(events.EventBacktestCompleted, events.SessionEvent{Type: events.EventBacktestCompleted, SessionID: "s"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.GetSnapshot().EventCounts["backtest.completed"] == 2 && sink.count() == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("counts=%v alerts=%d", metrics.GetSnapshot().EventCounts, sink.count())
}
