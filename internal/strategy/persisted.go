package strategy

import (
	"math"
	"strings"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"

	log "github.com/sirupsen/logrus"
)

// PersistedBlock is one entry of a saved block dump. It is kept loosely
// typed because saved data may come from older or newer clients.
type PersistedBlock map[string]any

// Dump renders the full persistence projection of blocks: identity,
// position, subtype, parameters under their internal names, and conditions.
func Dump(in []*blocks.Block) []PersistedBlock {
	out := make([]PersistedBlock, 0, len(in))
	for _, b := range in {
		if b == nil {
			continue
		}
		p := PersistedBlock{
			"id":   b.ID,
			"type": string(b.Type),
			"x":    b.X,
			"y":    b.Y,
		}
		switch {
		case b.Type == blocks.TypeIndicator:
			p["indicatorType"] = b.IndicatorType
			for name, v := range b.Params {
				p[name] = v
			}
		case b.Type.IsRule():
			conds := make([]any, 0, len(b.Conditions))
			for _, c := range b.Conditions {
				conds = append(conds, map[string]any{
					"indicator": c.Indicator,
					"operator":  string(c.Operator),
					"value":     c.Value,
				})
			}
			p["conditions"] = conds
		}
		out = append(out, p)
	}
	return out
}

// ToBlocks rebuilds blocks from a persisted dump. Malformed entries fall
// back to registry defaults instead of failing the load: entries without a
// known block type are skipped, numeric strings are accepted, conditions
// without an indicator are dropped and extra conditions are trimmed. Ids are
// left empty for the store to assign.
func ToBlocks(persisted []PersistedBlock) []*blocks.Block {
	out := make([]*blocks.Block, 0, len(persisted))
	for i, p := range persisted {
		if p == nil {
			log.Warnf("[STRATEGY] skipping empty block entry %d", i)
			continue
		}
		t := blocks.Type(strings.TrimSpace(blocks.StringFromAny(p["type"])))
		if !t.Valid() {
			log.Warnf("[STRATEGY] skipping block entry %d with unknown type %q", i, t)
			continue
		}
		b := &blocks.Block{Type: t}
		b.X, _ = blocks.FloatFromAny(p["x"])
		b.Y, _ = blocks.FloatFromAny(p["y"])

		if t == blocks.TypeIndicator {
			b.IndicatorType = firstString(p, "indicatorType", "indicator_type")
			entry := blocks.LookupBlock(b)
			if !entry.Known {
				b.Params = unknownParams(p)
				out = append(out, b)
				continue
			}
			for _, f := range entry.Fields {
				if f.Kind != blocks.KindInteger {
					continue
				}
				raw, ok := p[f.Name]
				if !ok && f.RequestKey != "" {
					raw = p[f.RequestKey]
				}
				if b.Params == nil {
					b.Params = make(map[string]int)
				}
				b.Params[f.Name] = blocks.IntFromAny(raw, f.IntDefault())
			}
		} else {
			b.Conditions = toConditions(p["conditions"])
		}
		out = append(out, b)
	}
	return out
}

func firstString(p PersistedBlock, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(blocks.StringFromAny(p[k])); s != "" {
			return s
		}
	}
	return ""
}

// reservedKeys are dump keys that never hold indicator parameters.
var reservedKeys = map[string]bool{
	"id": true, "type": true, "x": true, "y": true,
	"indicatorType": true, "indicator_type": true, "conditions": true,
}

// unknownParams keeps the whole-number fields of an indicator subtype the
// registry does not know, so a load and re-save does not lose them.
func unknownParams(p PersistedBlock) map[string]int {
	var params map[string]int
	for k, v := range p {
		if reservedKeys[k] {
			continue
		}
		f, ok := blocks.FloatFromAny(v)
		if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			continue
		}
		if params == nil {
			params = make(map[string]int)
		}
		params[k] = int(f)
	}
	return params
}

// asMap accepts the map shapes a condition can arrive in: JSON decodes
// plain maps, YAML nested under a PersistedBlock decodes PersistedBlock.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case PersistedBlock:
		return m, true
	}
	return nil, false
}

func toConditions(raw any) []blocks.Condition {
	var items []map[string]any
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if m, ok := asMap(item); ok {
				items = append(items, m)
			}
		}
	case []map[string]any:
		items = v
	case []PersistedBlock:
		for _, m := range v {
			items = append(items, m)
		}
	}

	conds := []blocks.Condition{}
	for _, m := range items {
		indicator := strings.TrimSpace(blocks.StringFromAny(m["indicator"]))
		if indicator == "" {
			continue
		}
		conds = append(conds, blocks.Condition{
			Indicator: indicator,
			Operator:  blocks.CoerceOperator(blocks.StringFromAny(m["operator"])),
			Value:     strings.TrimSpace(blocks.StringFromAny(m["value"])),
		})
		if len(conds) == blocks.MaxConditions {
			break
		}
	}
	return conds
}
