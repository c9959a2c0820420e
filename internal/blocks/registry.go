package blocks

import (
	"fmt"
	"strings"
)

// FieldKind describes how a configurable field is edited and coerced.
type FieldKind string

const (
	KindInteger FieldKind = "integer"
	KindEnum    FieldKind = "enum"
	KindString  FieldKind = "string"
)

// Field is one configurable input of a block type.
type Field struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Kind  FieldKind `json:"kind"`
	// Default is an int for KindInteger and a string otherwise.
	Default any      `json:"default"`
	Options []string `json:"options,omitempty"`
	// RequestKey is the parameter name in the backtest request, when it
	// differs from the internal field name. Empty for rule fields.
	RequestKey string `json:"request_key,omitempty"`
}

// IntDefault returns the default of an integer field.
func (f Field) IntDefault() int {
	if v, ok := f.Default.(int); ok {
		return v
	}
	return 0
}

// StringDefault returns the default of an enum or string field.
func (f Field) StringDefault() string {
	if v, ok := f.Default.(string); ok {
		return v
	}
	return ""
}

// Entry describes a block type/subtype: its title and its fields.
type Entry struct {
	Type          Type    `json:"type"`
	IndicatorType string  `json:"indicator_type,omitempty"`
	Title         string  `json:"title"`
	Fields        []Field `json:"fields"`
	// Known is false for the fallback entry of an unrecognized subtype.
	Known bool `json:"known"`
}

// Field returns the field with the given name.
func (e Entry) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func periodField(def int) Field {
	return Field{Name: "period", Label: "Period", Kind: KindInteger, Default: def, RequestKey: "period"}
}

func ruleFields() []Field {
	ops := make([]string, len(Operators))
	for i, op := range Operators {
		ops[i] = string(op)
	}
	return []Field{
		{Name: "indicator", Label: "Indicator", Kind: KindString, Default: ""},
		{Name: "operator", Label: "Operator", Kind: KindEnum, Default: string(OpGreater), Options: ops},
		{Name: "value", Label: "Value", Kind: KindString, Default: ""},
	}
}

var indicatorEntries = map[string]Entry{
	SMA: {Type: TypeIndicator, IndicatorType: SMA, Title: "Simple Moving Average (SMA)", Fields: []Field{periodField(20)}, Known: true},
	EMA: {Type: TypeIndicator, IndicatorType: EMA, Title: "Exponential Moving Average (EMA)", Fields: []Field{periodField(20)}, Known: true},
	RSI: {Type: TypeIndicator, IndicatorType: RSI, Title: "Relative Strength Index (RSI)", Fields: []Field{periodField(14)}, Known: true},
	MACD: {Type: TypeIndicator, IndicatorType: MACD, Title: "MACD", Known: true, Fields: []Field{
		{Name: "fastPeriod", Label: "Fast Period", Kind: KindInteger, Default: 12, RequestKey: "fast_period"},
		{Name: "slowPeriod", Label: "Slow Period", Kind: KindInteger, Default: 26, RequestKey: "slow_period"},
		{Name: "signalPeriod", Label: "Signal Period", Kind: KindInteger, Default: 9, RequestKey: "signal_period"},
	}},
}

var ruleEntries = map[Type]Entry{
	TypeEntry: {Type: TypeEntry, Title: "Entry Rule", Fields: ruleFields(), Known: true},
	TypeExit:  {Type: TypeExit, Title: "Exit Rule", Fields: ruleFields(), Known: true},
}

// Lookup returns the registry entry for a block type and optional indicator
// subtype. Unrecognized combinations yield a fallback entry titled with the
// raw subtype and no fields, so persisted data from newer clients still loads.
func Lookup(t Type, indicatorType string) Entry {
	switch {
	case t == TypeIndicator:
		if e, ok := indicatorEntries[indicatorType]; ok {
			return e
		}
		return Entry{Type: t, IndicatorType: indicatorType, Title: indicatorType}
	case t.IsRule():
		return ruleEntries[t]
	}
	title := indicatorType
	if title == "" {
		title = string(t)
	}
	return Entry{Type: t, IndicatorType: indicatorType, Title: title}
}

// LookupBlock is Lookup for an existing block.
func LookupBlock(b *Block) Entry {
	return Lookup(b.Type, b.IndicatorType)
}

// PaletteItem is a draggable block kind offered by the editor sidebar.
type PaletteItem struct {
	Type          Type   `json:"type"`
	IndicatorType string `json:"indicator_type,omitempty"`
	Title         string `json:"title"`
}

// Palette lists every placeable block kind in sidebar order.
func Palette() []PaletteItem {
	items := make([]PaletteItem, 0, len(indicatorEntries)+len(ruleEntries))
	for _, sub := range []string{SMA, EMA, RSI, MACD} {
		e := indicatorEntries[sub]
		items = append(items, PaletteItem{Type: e.Type, IndicatorType: e.IndicatorType, Title: e.Title})
	}
	for _, t := range []Type{TypeEntry, TypeExit} {
		e := ruleEntries[t]
		items = append(items, PaletteItem{Type: e.Type, Title: e.Title})
	}
	return items
}

// applyDefaults sets every registry field of b to its default value.
func applyDefaults(b *Block) {
	entry := LookupBlock(b)
	for _, f := range entry.Fields {
		if f.Kind != KindInteger {
			continue
		}
		if b.Params == nil {
			b.Params = make(map[string]int)
		}
		b.Params[f.Name] = f.IntDefault()
	}
	if b.Type.IsRule() && b.Conditions == nil {
		b.Conditions = []Condition{}
	}
}

// Summary renders the one-line settings text shown on a placed block.
func Summary(b *Block) string {
	switch {
	case b.Type == TypeIndicator:
		switch b.IndicatorType {
		case SMA, EMA, RSI:
			return fmt.Sprintf("Period: %d", b.Params["period"])
		case MACD:
			return fmt.Sprintf("Fast: %d, Slow: %d, Signal: %d",
				b.Params["fastPeriod"], b.Params["slowPeriod"], b.Params["signalPeriod"])
		}
		return ""
	case b.Type.IsRule():
		if len(b.Conditions) == 0 {
			return "No conditions set"
		}
		c := b.Conditions[0]
		return strings.TrimSpace(fmt.Sprintf("%s %s %s", c.Indicator, c.Operator, c.Value))
	}
	return ""
}
