// Package blocks holds the strategy block model: placed blocks, the per-type
// configuration registry, and the ordered store an editor session works on.
package blocks

import "strconv"

// Type is the closed set of block kinds that can be placed on the canvas.
type Type string

const (
	TypeIndicator Type = "indicator"
	TypeEntry     Type = "entry"
	TypeExit      Type = "exit"
)

// Valid reports whether t is one of the known block kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeIndicator, TypeEntry, TypeExit:
		return true
	}
	return false
}

// IsRule reports whether blocks of this type carry conditions.
func (t Type) IsRule() bool {
	return t == TypeEntry || t == TypeExit
}

// Indicator subtypes understood by the registry.
const (
	SMA  = "SMA"
	EMA  = "EMA"
	RSI  = "RSI"
	MACD = "MACD"
)

// Operator is a comparison used inside a Condition.
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// Operators lists the supported operators in the order the editor offers them.
var Operators = []Operator{OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual}

// Valid reports whether op is a supported comparison.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// PriceFields are the literal price series a condition may reference.
var PriceFields = []string{"close", "open", "high", "low"}

// IsPriceField reports whether s names a raw price series.
func IsPriceField(s string) bool {
	for _, f := range PriceFields {
		if f == s {
			return true
		}
	}
	return false
}

// MaxConditions is the number of conditions a rule block may hold.
const MaxConditions = 1

// Condition is one comparison clause of a rule block. Value is kept as an
// opaque string: a numeric literal or another indicator identifier.
type Condition struct {
	Indicator string   `json:"indicator"`
	Operator  Operator `json:"operator"`
	Value     string   `json:"value"`
}

// Block is a single configurable unit placed on the canvas.
type Block struct {
	ID            string
	Type          Type
	X, Y          float64
	IndicatorType string
	// Params holds integer parameters keyed by their registry field name
	// (period, fastPeriod, ...).
	Params     map[string]int
	Conditions []Condition
}

// Param returns the named integer parameter and whether it is set.
func (b *Block) Param(name string) (int, bool) {
	v, ok := b.Params[name]
	return v, ok
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	c := *b
	if b.Params != nil {
		c.Params = make(map[string]int, len(b.Params))
		for k, v := range b.Params {
			c.Params[k] = v
		}
	}
	if b.Conditions != nil {
		c.Conditions = append([]Condition(nil), b.Conditions...)
	}
	return &c
}

// Identifier returns the key rule conditions use to reference the output of
// an indicator block. MACD is parameter independent, so several MACD blocks
// share the same identifier.
func Identifier(b *Block) (string, bool) {
	if b == nil || b.Type != TypeIndicator {
		return "", false
	}
	switch b.IndicatorType {
	case SMA, EMA, RSI:
		period, ok := b.Param("period")
		if !ok {
			return "", false
		}
		return b.IndicatorType + "_" + strconv.Itoa(period), true
	case MACD:
		return MACD, true
	}
	return "", false
}
