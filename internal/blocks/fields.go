package blocks

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalization layer shared by the configuration editor and the persisted
// strategy loader. Every coercion falls back to a default instead of failing.

// CoerceInt parses an integer field. Leading/trailing spaces are ignored and a
// decimal input is truncated. Unparseable or non-positive input yields def.
func CoerceInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n > 0 {
			return n
		}
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return positiveInt(f, def)
}

// IntFromAny coerces a decoded JSON/YAML value into a positive integer.
func IntFromAny(v any, def int) int {
	switch n := v.(type) {
	case int:
		if n > 0 {
			return n
		}
	case int64:
		if n > 0 && n <= math.MaxInt32 {
			return int(n)
		}
	case float64:
		return positiveInt(n, def)
	case json.Number:
		return CoerceInt(n.String(), def)
	case string:
		return CoerceInt(n, def)
	}
	return def
}

func positiveInt(f float64, def int) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return def
	}
	return int(f)
}

// FloatFromAny coerces a decoded value into a float. ok is false when v is
// absent or not numeric.
func FloatFromAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// StringFromAny renders a decoded scalar as the opaque string stored in a
// condition. Numbers keep their shortest representation.
func StringFromAny(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// CoerceOperator maps raw input onto a supported operator, defaulting to ">".
func CoerceOperator(raw string) Operator {
	op := Operator(strings.TrimSpace(raw))
	if op.Valid() {
		return op
	}
	return OpGreater
}

// Configure writes user-supplied field values onto b according to its
// registry schema. Fields that are not supplied keep their current value.
// For rule blocks an empty indicator leaves the conditions untouched;
// otherwise the single condition is replaced.
func Configure(b *Block, fields map[string]string) {
	entry := LookupBlock(b)
	if b.Type.IsRule() {
		indicator := strings.TrimSpace(fields["indicator"])
		if indicator == "" {
			return
		}
		b.Conditions = []Condition{{
			Indicator: indicator,
			Operator:  CoerceOperator(fields["operator"]),
			Value:     strings.TrimSpace(fields["value"]),
		}}
		return
	}
	for _, f := range entry.Fields {
		raw, ok := fields[f.Name]
		if !ok || f.Kind != KindInteger {
			continue
		}
		if b.Params == nil {
			b.Params = make(map[string]int)
		}
		b.Params[f.Name] = CoerceInt(raw, f.IntDefault())
	}
}
