package strategy

import (
	"fmt"
	"strings"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
)

var flippedOperators = map[string]string{
	">":  "<",
	"<":  ">",
	">=": "<=",
	"<=": ">=",
}

// Complete fills in what a backtest needs to run when the canvas is only
// partially built: a default SMA(20) when no indicator is present, a default
// entry rule on the first SMA or RSI, and an exit rule mirroring the first
// entry rule. The input is not modified.
func Complete(req Request) Request {
	out := Request{
		Indicators: append([]Indicator{}, req.Indicators...),
		EntryRules: append([]Rule{}, req.EntryRules...),
		ExitRules:  append([]Rule{}, req.ExitRules...),
	}

	if len(out.Indicators) == 0 {
		out.Indicators = append(out.Indicators, Indicator{
			Type:       blocks.SMA,
			Parameters: map[string]any{"period": 20, "price": "close"},
		})
	}

	if len(out.EntryRules) == 0 {
		name := "SMA_20"
		for _, ind := range out.Indicators {
			if ind.Type == blocks.SMA || ind.Type == blocks.RSI {
				period := blocks.IntFromAny(ind.Parameters["period"], 20)
				name = fmt.Sprintf("%s_%d", ind.Type, period)
				break
			}
		}
		value := "close"
		if strings.HasPrefix(name, blocks.RSI) {
			value = "50"
		}
		out.EntryRules = append(out.EntryRules, Rule{Indicator: name, Operator: ">", Value: value})
	}

	if len(out.ExitRules) == 0 {
		exit := out.EntryRules[0]
		if flipped, ok := flippedOperators[exit.Operator]; ok {
			exit.Operator = flipped
		}
		out.ExitRules = append(out.ExitRules, exit)
	}
	return out
}
