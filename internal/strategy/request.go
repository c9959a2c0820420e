// Package strategy converts between the block graph and its two external
// shapes: the backtest request and the full persisted block dump.
package strategy

import "github.com/anjaninandan001/algo-tinker/internal/blocks"

// Indicator is one indicator entry of a backtest request.
type Indicator struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// Rule is one flattened entry or exit condition.
type Rule struct {
	Indicator string `json:"indicator"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// Request is the backend-facing projection of a block graph. The slices are
// never nil so an empty graph encodes as three empty arrays.
type Request struct {
	Indicators []Indicator `json:"indicators"`
	EntryRules []Rule      `json:"entry_rules"`
	ExitRules  []Rule      `json:"exit_rules"`
}

// Empty reports whether the request carries nothing at all.
func (r Request) Empty() bool {
	return len(r.Indicators) == 0 && len(r.EntryRules) == 0 && len(r.ExitRules) == 0
}

// ToRequest projects blocks in display order onto a backtest request.
// Parameter names are renamed to the backend contract, conditions are
// flattened block by block, and indicators of an unrecognized subtype are
// dropped.
func ToRequest(in []*blocks.Block) Request {
	req := Request{
		Indicators: []Indicator{},
		EntryRules: []Rule{},
		ExitRules:  []Rule{},
	}
	for _, b := range in {
		if b == nil {
			continue
		}
		switch b.Type {
		case blocks.TypeIndicator:
			entry := blocks.LookupBlock(b)
			if !entry.Known {
				continue
			}
			params := make(map[string]any, len(entry.Fields))
			for _, f := range entry.Fields {
				if f.Kind != blocks.KindInteger {
					continue
				}
				v, ok := b.Param(f.Name)
				if !ok {
					v = f.IntDefault()
				}
				params[f.RequestKey] = v
			}
			req.Indicators = append(req.Indicators, Indicator{Type: b.IndicatorType, Parameters: params})
		case blocks.TypeEntry:
			req.EntryRules = appendRules(req.EntryRules, b.Conditions)
		case blocks.TypeExit:
			req.ExitRules = appendRules(req.ExitRules, b.Conditions)
		}
	}
	return req
}

func appendRules(dst []Rule, conds []blocks.Condition) []Rule {
	for _, c := range conds {
		dst = append(dst, Rule{Indicator: c.Indicator, Operator: string(c.Operator), Value: c.Value})
	}
	return dst
}
