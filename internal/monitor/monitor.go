package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/events"

	log "github.com/sirupsen/logrus"
)

// Monitor counts bus traffic into Metrics and alerts on discarded or failed
// backtests.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	Sink    AlertSink
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Metrics == nil {
		log.Warn("[MONITOR] not fully configured; skipping")
		return
	}
	if m.Sink == nil {
		m.Sink = LogSink{}
	}
	stream, unsub := m.Bus.Subscribe(events.EventAll, 256)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				m.handle(msg)
			}
		}
	}()
}

func (m *Monitor) handle(msg any) {
	ev, ok := msg.(events.SessionEvent)
	if !ok {
		return
	}
	m.Metrics.CountEvent(string(ev.Type))
	if alert := formatAlert(ev); alert != "" {
		if err := m.Sink.Send(alert); err != nil {
			log.Errorf("[MONITOR] alert delivery failed: %v", err)
		}
	}
}

func formatAlert(ev events.SessionEvent) string {
	switch ev.Type {
	case events.EventBacktestDiscarded:
		return fmt.Sprintf("[%s] session %s: backtest result discarded (generation %d)",
			ev.At.Format(time.RFC3339), ev.SessionID, ev.Generation)
	case events.EventBacktestCompleted:
		if msg, ok := ev.Data.(string); ok && msg != "" {
			return fmt.Sprintf("[%s] session %s: backtest failed: %s", ev.At.Format(time.RFC3339), ev.SessionID, msg)
		}
	}
	return ""
}
