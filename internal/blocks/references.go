package blocks

import (
	"strconv"
	"strings"
)

// AvailableReferences lists what a rule condition may compare against: the
// raw price fields followed by the identifiers of the indicator blocks in
// display order. Identifier collisions (several MACD blocks) are kept.
func AvailableReferences(blocks []*Block) []string {
	refs := append([]string(nil), PriceFields...)
	for _, b := range blocks {
		if id, ok := Identifier(b); ok {
			refs = append(refs, id)
		}
	}
	return refs
}

// DanglingReference is a condition operand that names no existing output.
type DanglingReference struct {
	BlockID   string `json:"block_id"`
	Condition int    `json:"condition"`
	Operand   string `json:"operand"` // "indicator" or "value"
	Name      string `json:"name"`
}

// DanglingReferences reports rule operands that reference an indicator
// identifier no block currently produces, for instance after an indicator's
// period changed. References are never rewritten automatically.
func DanglingReferences(blocks []*Block) []DanglingReference {
	known := make(map[string]struct{})
	for _, b := range blocks {
		if id, ok := Identifier(b); ok {
			known[id] = struct{}{}
		}
	}
	resolves := func(s string) bool {
		s = strings.TrimSpace(s)
		if s == "" || IsPriceField(s) {
			return true
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return true
		}
		_, ok := known[s]
		return ok
	}

	var out []DanglingReference
	for _, b := range blocks {
		if !b.Type.IsRule() {
			continue
		}
		for i, c := range b.Conditions {
			if !resolves(c.Indicator) {
				out = append(out, DanglingReference{BlockID: b.ID, Condition: i, Operand: "indicator", Name: c.Indicator})
			}
			if !resolves(c.Value) {
				out = append(out, DanglingReference{BlockID: b.ID, Condition: i, Operand: "value", Name: c.Value})
			}
		}
	}
	return out
}
