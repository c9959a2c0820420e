package blocks

import "testing"

func TestLookupIsExhaustive(t *testing.T) {
	tests := []struct {
		typ    Type
		sub    string
		title  string
		fields []string
	}{
		{TypeIndicator, SMA, "Simple Moving Average (SMA)", []string{"period"}},
		{TypeIndicator, EMA, "Exponential Moving Average (EMA)", []string{"period"}},
		{TypeIndicator, RSI, "Relative Strength Index (RSI)", []string{"period"}},
		{TypeIndicator, MACD, "MACD", []string{"fastPeriod", "slowPeriod", "signalPeriod"}},
		{TypeEntry, "", "Entry Rule", []string{"indicator", "operator", "value"}},
		{TypeExit, "", "Exit Rule", []string{"indicator", "operator", "value"}},
	}

	for _, tt := range tests {
		e := Lookup(tt.typ, tt.sub)
		if !e.Known {
			t.Fatalf("%s/%s not known", tt.typ, tt.sub)
		}
		if e.Title != tt.title {
			t.Fatalf("%s/%s title=%q, expected %q", tt.typ, tt.sub, e.Title, tt.title)
		}
		if len(e.Fields) != len(tt.fields) {
			t.Fatalf("%s/%s fields=%v, expected %v", tt.typ, tt.sub, e.Fields, tt.fields)
		}
		for i, name := range tt.fields {
			if e.Fields[i].Name != name {
				t.Fatalf("%s/%s field[%d]=%q, expected %q", tt.typ, tt.sub, i, e.Fields[i].Name, name)
			}
		}
	}
}

func TestLookupUnknownSubtypeFallsBack(t *testing.T) {
	e := Lookup(TypeIndicator, "BOLL")
	if e.Known {
		t.Fatalf("fallback entry marked known")
	}
	if e.Title != "BOLL" {
		t.Fatalf("title=%q, expected raw subtype", e.Title)
	}
	if len(e.Fields) != 0 {
		t.Fatalf("fallback entry has fields: %v", e.Fields)
	}
}

func TestMACDRequestKeysDifferFromFieldNames(t *testing.T) {
	e := Lookup(TypeIndicator, MACD)
	want := map[string]string{"fastPeriod": "fast_period", "slowPeriod": "slow_period", "signalPeriod": "signal_period"}
	for _, f := range e.Fields {
		if f.Kind != KindInteger {
			t.Fatalf("%s kind=%s, expected integer", f.Name, f.Kind)
		}
		if f.RequestKey != want[f.Name] {
			t.Fatalf("%s request key=%q, expected %q", f.Name, f.RequestKey, want[f.Name])
		}
	}
}

func TestOperatorFieldIsEnum(t *testing.T) {
	f, ok := Lookup(TypeEntry, "").Field("operator")
	if !ok {
		t.Fatalf("operator field missing")
	}
	if f.Kind != KindEnum || f.StringDefault() != ">" || len(f.Options) != len(Operators) {
		t.Fatalf("unexpected operator field: %+v", f)
	}
}

func TestPaletteCoversAllKinds(t *testing.T) {
	items := Palette()
	if len(items) != 6 {
		t.Fatalf("palette size=%d, expected 6", len(items))
	}
	if items[0].IndicatorType != SMA || items[5].Type != TypeExit {
		t.Fatalf("unexpected palette order: %+v", items)
	}
}

func TestSummary(t *testing.T) {
	s := NewStore()
	sma := s.Create(TypeIndicator, SMA, 0, 0)
	macd := s.Create(TypeIndicator, MACD, 0, 0)
	entry := s.Create(TypeEntry, "", 0, 0)
	entry.Conditions = []Condition{{Indicator: "SMA_20", Operator: OpGreater, Value: "close"}}

	if got := Summary(sma); got != "Period: 20" {
		t.Fatalf("sma summary=%q", got)
	}
	if got := Summary(macd); got != "Fast: 12, Slow: 26, Signal: 9" {
		t.Fatalf("macd summary=%q", got)
	}
	if got := Summary(entry); got != "SMA_20 > close" {
		t.Fatalf("entry summary=%q", got)
	}
}
