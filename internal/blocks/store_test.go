package blocks

import (
	"math/rand"
	"testing"
)

func TestCreateAppliesDefaults(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		sub     string
		wantPar map[string]int
	}{
		{name: "sma", typ: TypeIndicator, sub: SMA, wantPar: map[string]int{"period": 20}},
		{name: "ema", typ: TypeIndicator, sub: EMA, wantPar: map[string]int{"period": 20}},
		{name: "rsi", typ: TypeIndicator, sub: RSI, wantPar: map[string]int{"period": 14}},
		{name: "macd", typ: TypeIndicator, sub: MACD, wantPar: map[string]int{"fastPeriod": 12, "slowPeriod": 26, "signalPeriod": 9}},
		{name: "unknown", typ: TypeIndicator, sub: "VWAP", wantPar: map[string]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			b := s.Create(tt.typ, tt.sub, 10, 20)
			if b.ID != "block-1" {
				t.Fatalf("ID=%q, expected block-1", b.ID)
			}
			if b.IndicatorType != tt.sub {
				t.Fatalf("IndicatorType=%q, expected %q", b.IndicatorType, tt.sub)
			}
			if len(b.Params) != len(tt.wantPar) {
				t.Fatalf("Params=%v, expected %v", b.Params, tt.wantPar)
			}
			for k, v := range tt.wantPar {
				if b.Params[k] != v {
					t.Fatalf("Params[%s]=%d, expected %d", k, b.Params[k], v)
				}
			}
			if b.X != 10 || b.Y != 20 {
				t.Fatalf("position=(%v,%v), expected (10,20)", b.X, b.Y)
			}
		})
	}
}

func TestCreateRuleStartsWithoutConditions(t *testing.T) {
	s := NewStore()
	for _, typ := range []Type{TypeEntry, TypeExit} {
		b := s.Create(typ, "ignored", 0, 0)
		if b.IndicatorType != "" {
			t.Fatalf("%s block kept indicator type %q", typ, b.IndicatorType)
		}
		if b.Conditions == nil || len(b.Conditions) != 0 {
			t.Fatalf("%s block conditions=%v, expected empty", typ, b.Conditions)
		}
		if Summary(b) != "No conditions set" {
			t.Fatalf("summary=%q", Summary(b))
		}
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	s := NewStore()
	a := s.Create(TypeIndicator, SMA, 0, 0)
	s.Remove(a.ID)
	b := s.Create(TypeIndicator, SMA, 0, 0)
	if b.ID == a.ID {
		t.Fatalf("id %q reused after removal", a.ID)
	}
	s.Clear()
	c := s.Create(TypeEntry, "", 0, 0)
	if c.ID != "block-3" {
		t.Fatalf("ID after clear=%q, expected block-3", c.ID)
	}
}

func TestCreateRemoveKeepsIDsUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStore()
	var ids []string
	creates, matched := 0, 0

	for i := 0; i < 500; i++ {
		if rng.Intn(3) == 0 && len(ids) > 0 {
			// Mix removals of live ids with removals of ids that never existed.
			id := "block-999999"
			if rng.Intn(2) == 0 {
				id = ids[rng.Intn(len(ids))]
			}
			if s.Remove(id) {
				matched++
			}
			continue
		}
		b := s.Create(TypeIndicator, RSI, 0, 0)
		ids = append(ids, b.ID)
		creates++
	}

	seen := make(map[string]bool)
	for _, b := range s.All() {
		if seen[b.ID] {
			t.Fatalf("duplicate id %q", b.ID)
		}
		seen[b.ID] = true
	}
	if got, want := len(s.All()), creates-matched; got != want {
		t.Fatalf("len(All())=%d, expected %d", got, want)
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()
	s.Create(TypeEntry, "", 0, 0)
	if s.Remove("block-42") {
		t.Fatalf("Remove of unknown id reported a match")
	}
	if s.Len() != 1 {
		t.Fatalf("Len=%d, expected 1", s.Len())
	}
}

func TestOfTypePreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	first := s.Create(TypeEntry, "", 0, 0)
	s.Create(TypeIndicator, SMA, 0, 0)
	second := s.Create(TypeEntry, "", 0, 0)
	s.Create(TypeExit, "", 0, 0)

	entries := s.OfType(TypeEntry)
	if len(entries) != 2 || entries[0] != first || entries[1] != second {
		t.Fatalf("OfType(entry)=%v, expected [%s %s]", entries, first.ID, second.ID)
	}
	if got := s.OfType(TypeExit); len(got) != 1 {
		t.Fatalf("OfType(exit) len=%d, expected 1", len(got))
	}
}

func TestFind(t *testing.T) {
	s := NewStore()
	b := s.Create(TypeIndicator, EMA, 0, 0)
	got, ok := s.Find(b.ID)
	if !ok || got != b {
		t.Fatalf("Find(%q) = %v, %v", b.ID, got, ok)
	}
	if _, ok := s.Find("block-0"); ok {
		t.Fatalf("Find returned a block for an unknown id")
	}
}

func TestRestoreAssignsFreshIDs(t *testing.T) {
	s := NewStore()
	s.Create(TypeIndicator, SMA, 0, 0)

	restored := s.Restore([]*Block{
		{ID: "block-1", Type: TypeIndicator, IndicatorType: SMA, Params: map[string]int{"period": 50}},
		{ID: "block-1", Type: TypeEntry, Conditions: []Condition{{Indicator: "SMA_50", Operator: OpGreater, Value: "close"}}},
		nil,
	})
	if len(restored) != 2 {
		t.Fatalf("restored %d blocks, expected 2", len(restored))
	}
	if restored[0].ID != "block-2" || restored[1].ID != "block-3" {
		t.Fatalf("ids=%s,%s expected block-2,block-3", restored[0].ID, restored[1].ID)
	}
	if restored[0].Params["period"] != 50 {
		t.Fatalf("period=%d, expected 50", restored[0].Params["period"])
	}
}
