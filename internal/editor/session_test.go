package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/results"
)

func newTestSession() *Session {
	return NewSession("s-1", DefaultSettings(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), "aapl", 10000))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC), "msft", 5000)
	if s.Symbol != "MSFT" {
		t.Fatalf("symbol=%q", s.Symbol)
	}
	if got := s.StartDate.Format(DateLayout); got != "2023-06-15" {
		t.Fatalf("start=%s", got)
	}
	if got := s.EndDate.Format(DateLayout); got != "2024-06-15" {
		t.Fatalf("end=%s", got)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	base := DefaultSettings(time.Now(), "AAPL", 10000)
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty symbol", func(s *Settings) { s.Symbol = " " }},
		{"reversed dates", func(s *Settings) { s.StartDate, s.EndDate = s.EndDate, s.StartDate }},
		{"zero capital", func(s *Settings) { s.Capital = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestAddBlockRejectsUnknownType(t *testing.T) {
	s := newTestSession()
	if _, err := s.AddBlock(blocks.Type("signal"), "", 0, 0); !errors.Is(err, ErrInvalidBlockType) {
		t.Fatalf("err=%v, expected ErrInvalidBlockType", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len=%d, expected 0", s.Len())
	}
}

func TestBlocksAreCopies(t *testing.T) {
	s := newTestSession()
	b, _ := s.AddBlock(blocks.TypeIndicator, blocks.SMA, 0, 0)
	b.Params["period"] = 99

	got, _ := s.Block(b.ID)
	if got.Params["period"] != 20 {
		t.Fatalf("caller mutation leaked into the session: %v", got.Params)
	}
}

func TestMutationsInvalidateTickets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session, id string)
	}{
		{"add", func(s *Session, _ string) { s.AddBlock(blocks.TypeEntry, "", 0, 0) }},
		{"remove", func(s *Session, id string) { s.RemoveBlock(id) }},
		{"commit", func(s *Session, id string) {
			s.Select(id)
			s.Commit(map[string]string{"period": "30"})
		}},
		{"clear", func(s *Session, _ string) { s.Clear() }},
		{"load", func(s *Session, _ string) { s.Replace(nil, "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			b, _ := s.AddBlock(blocks.TypeIndicator, blocks.SMA, 0, 0)
			ticket := s.Ticket()
			tt.mutate(s, b.ID)

			if s.Current(ticket) {
				t.Fatalf("ticket still current after %s", tt.name)
			}
			err := s.ApplyReport(ticket, &results.Report{})
			if !errors.Is(err, ErrStale) {
				t.Fatalf("ApplyReport err=%v, expected ErrStale", err)
			}
			if _, ok := s.Report(); ok {
				t.Fatalf("stale report was stored")
			}
		})
	}
}

func TestNoopsKeepTicketCurrent(t *testing.T) {
	s := newTestSession()
	b, _ := s.AddBlock(blocks.TypeIndicator, blocks.RSI, 0, 0)
	ticket := s.Ticket()

	s.RemoveBlock("block-404")
	s.Commit(map[string]string{"period": "3"})
	s.Select(b.ID)
	s.Cancel()
	s.SetSettings(Settings{Symbol: "tsla", StartDate: time.Now().AddDate(0, -1, 0), EndDate: time.Now(), Capital: 1})

	if !s.Current(ticket) {
		t.Fatalf("ticket invalidated by a no-op")
	}
	if err := s.ApplyReport(ticket, &results.Report{Skipped: 1}); err != nil {
		t.Fatalf("ApplyReport: %v", err)
	}
	r, ok := s.Report()
	if !ok || r.Skipped != 1 {
		t.Fatalf("report not stored: %+v", r)
	}
	if s.Settings().Symbol != "TSLA" {
		t.Fatalf("symbol=%q", s.Settings().Symbol)
	}
}

func TestReplaceAssignsFreshIDsAndSymbol(t *testing.T) {
	s := newTestSession()
	s.AddBlock(blocks.TypeIndicator, blocks.SMA, 0, 0)
	s.Select("block-1")

	loaded := []*blocks.Block{
		{ID: "block-7", Type: blocks.TypeIndicator, IndicatorType: blocks.RSI, Params: map[string]int{"period": 10}},
	}
	got := s.Replace(loaded, "nvda")
	if len(got) != 1 || got[0].ID != "block-2" {
		t.Fatalf("restored=%+v", got)
	}
	if state, _ := s.SelectionState(); state != StateIdle {
		t.Fatalf("selection survived load")
	}
	if s.Settings().Symbol != "NVDA" {
		t.Fatalf("symbol=%q", s.Settings().Symbol)
	}
}

func TestSessionConcurrentEdits(t *testing.T) {
	s := newTestSession()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b, _ := s.AddBlock(blocks.TypeIndicator, blocks.EMA, 0, 0)
				if j%2 == 0 {
					s.RemoveBlock(b.ID)
				}
				s.Snapshot()
			}
		}()
	}
	wg.Wait()

	if s.Len() != 250 {
		t.Fatalf("Len=%d, expected 250", s.Len())
	}
	seen := map[string]bool{}
	for _, b := range s.Blocks() {
		if seen[b.ID] {
			t.Fatalf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(10*time.Millisecond, nil)
	s := m.Create()
	if got, err := m.Get(s.ID); err != nil || got != s {
		t.Fatalf("Get=%v,%v", got, err)
	}
	if s.Settings().Symbol != "AAPL" || s.Settings().Capital != 10000 {
		t.Fatalf("unexpected default settings: %+v", s.Settings())
	}

	time.Sleep(20 * time.Millisecond)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, expected 1", n)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v, expected ErrSessionNotFound", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Delete err=%v", err)
	}
}

func TestManagerRunReportsLiveCount(t *testing.T) {
	m := NewManager(5*time.Millisecond, nil)
	m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	counts := make(chan int, 16)
	go m.Run(ctx, 5*time.Millisecond, func(live int) {
		select {
		case counts <- live:
		default:
		}
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-counts:
			if n == 0 {
				return
			}
		case <-deadline:
			t.Fatal("session was never swept")
		}
	}
}
