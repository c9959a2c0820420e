package blocks

import "testing"

func TestIdentifier(t *testing.T) {
	s := NewStore()
	sma := s.Create(TypeIndicator, SMA, 0, 0)
	ema := s.Create(TypeIndicator, EMA, 0, 0)
	rsi := s.Create(TypeIndicator, RSI, 0, 0)
	unknown := s.Create(TypeIndicator, "VWAP", 0, 0)
	entry := s.Create(TypeEntry, "", 0, 0)

	tests := []struct {
		b    *Block
		want string
		ok   bool
	}{
		{sma, "SMA_20", true},
		{ema, "EMA_20", true},
		{rsi, "RSI_14", true},
		{unknown, "", false},
		{entry, "", false},
	}
	for _, tt := range tests {
		got, ok := Identifier(tt.b)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("Identifier(%s)=(%q,%v), expected (%q,%v)", tt.b.ID, got, ok, tt.want, tt.ok)
		}
	}

	Configure(sma, map[string]string{"period": "50"})
	if got, _ := Identifier(sma); got != "SMA_50" {
		t.Fatalf("identifier after period change=%q, expected SMA_50", got)
	}
}

func TestMACDIdentifiersCollide(t *testing.T) {
	s := NewStore()
	a := s.Create(TypeIndicator, MACD, 0, 0)
	b := s.Create(TypeIndicator, MACD, 0, 0)
	Configure(b, map[string]string{"fastPeriod": "3", "slowPeriod": "10", "signalPeriod": "4"})

	idA, _ := Identifier(a)
	idB, _ := Identifier(b)
	if idA != "MACD" || idB != "MACD" {
		t.Fatalf("identifiers=%q,%q expected both MACD", idA, idB)
	}

	refs := AvailableReferences(s.All())
	macds := 0
	for _, r := range refs {
		if r == "MACD" {
			macds++
		}
	}
	if macds != 2 {
		t.Fatalf("references=%v, expected the MACD collision to be kept", refs)
	}
}

func TestAvailableReferencesStartWithPriceFields(t *testing.T) {
	s := NewStore()
	s.Create(TypeIndicator, RSI, 0, 0)
	refs := AvailableReferences(s.All())
	want := []string{"close", "open", "high", "low", "RSI_14"}
	if len(refs) != len(want) {
		t.Fatalf("refs=%v, expected %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs=%v, expected %v", refs, want)
		}
	}
}

func TestDanglingReferencesAfterPeriodChange(t *testing.T) {
	s := NewStore()
	sma := s.Create(TypeIndicator, SMA, 0, 0)
	entry := s.Create(TypeEntry, "", 0, 0)
	Configure(entry, map[string]string{"indicator": "SMA_20", "operator": ">", "value": "close"})
	exit := s.Create(TypeExit, "", 0, 0)
	Configure(exit, map[string]string{"indicator": "close", "operator": "<", "value": "101.5"})

	if got := DanglingReferences(s.All()); len(got) != 0 {
		t.Fatalf("unexpected dangling references: %+v", got)
	}

	Configure(sma, map[string]string{"period": "30"})
	got := DanglingReferences(s.All())
	if len(got) != 1 {
		t.Fatalf("dangling=%+v, expected one", got)
	}
	if got[0].BlockID != entry.ID || got[0].Name != "SMA_20" || got[0].Operand != "indicator" {
		t.Fatalf("unexpected dangling reference: %+v", got[0])
	}
	if entry.Conditions[0].Indicator != "SMA_20" {
		t.Fatalf("condition was rewritten to %q", entry.Conditions[0].Indicator)
	}
}
