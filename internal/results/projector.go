// Package results turns a backtest response into display rows.
package results

import (
	"strconv"
	"strings"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Response is the result payload of the backtest service. Trades are kept
// loosely typed so incomplete rows can be skipped instead of failing the
// whole decode.
type Response struct {
	InitialCapital float64          `json:"initial_capital"`
	FinalEquity    float64          `json:"final_equity"`
	TotalReturn    float64          `json:"total_return"`
	SharpeRatio    float64          `json:"sharpe_ratio"`
	MaxDrawdown    float64          `json:"max_drawdown"`
	TotalTrades    int              `json:"total_trades"`
	Trades         []map[string]any `json:"trades"`
	EquityCurve    []float64        `json:"equity_curve"`
	Error          string           `json:"error,omitempty"`
}

// Tone marks how a metric value should be highlighted.
type Tone string

const (
	ToneNeutral  Tone = ""
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
)

// Metric is one labelled row of the performance panel.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Tone  Tone   `json:"tone,omitempty"`
}

// Trade is a complete trade row.
type Trade struct {
	Date       string  `json:"date"`
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
	Shares     float64 `json:"shares"`
	Value      float64 `json:"value"`
	PriceText  string  `json:"price_text"`
	SharesText string  `json:"shares_text"`
	ValueText  string  `json:"value_text"`
}

// EquityPoint pairs an equity value with a synthesized calendar date.
type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Report is the display projection of a Response.
type Report struct {
	Metrics []Metric      `json:"metrics"`
	Trades  []Trade       `json:"trades"`
	Skipped int           `json:"skipped"`
	Equity  []EquityPoint `json:"equity"`
	Error   string        `json:"error,omitempty"`
}

// Project maps resp onto display rows. An error payload yields a report
// carrying only Error. Trades missing any of date, type, price or shares are
// skipped and counted. The service sends the equity curve without
// timestamps, so point i is dated start + i days.
func Project(resp Response, start time.Time) Report {
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return Report{Error: msg, Metrics: []Metric{}, Trades: []Trade{}, Equity: []EquityPoint{}}
	}

	rep := Report{
		Metrics: metrics(resp),
		Trades:  make([]Trade, 0, len(resp.Trades)),
		Equity:  make([]EquityPoint, 0, len(resp.EquityCurve)),
	}

	for i, raw := range resp.Trades {
		tr, ok := projectTrade(raw)
		if !ok {
			log.Debugf("[RESULTS] skipping incomplete trade %d: %v", i, raw)
			rep.Skipped++
			continue
		}
		rep.Trades = append(rep.Trades, tr)
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i, v := range resp.EquityCurve {
		rep.Equity = append(rep.Equity, EquityPoint{
			Date:  day.AddDate(0, 0, i).Format("2006-01-02"),
			Value: v,
		})
	}
	return rep
}

func metrics(resp Response) []Metric {
	returnTone := TonePositive
	if resp.TotalReturn < 0 {
		returnTone = ToneNegative
	}
	return []Metric{
		{Label: "Initial Capital", Value: "$" + FormatNumber(resp.InitialCapital)},
		{Label: "Final Equity", Value: "$" + FormatNumber(resp.FinalEquity)},
		{Label: "Total Return", Value: FormatNumber(resp.TotalReturn) + "%", Tone: returnTone},
		{Label: "Sharpe Ratio", Value: FormatNumber(resp.SharpeRatio)},
		{Label: "Max Drawdown", Value: FormatNumber(resp.MaxDrawdown) + "%", Tone: ToneNegative},
		{Label: "Total Trades", Value: strconv.Itoa(resp.TotalTrades)},
	}
}

// projectTrade validates presence: a numeric zero counts as present, an
// empty string or a non-numeric price or share count does not.
func projectTrade(raw map[string]any) (Trade, bool) {
	if raw == nil {
		return Trade{}, false
	}
	date := strings.TrimSpace(blocks.StringFromAny(raw["date"]))
	typ := strings.TrimSpace(blocks.StringFromAny(raw["type"]))
	if date == "" || typ == "" {
		return Trade{}, false
	}
	price, ok := blocks.FloatFromAny(raw["price"])
	if !ok {
		return Trade{}, false
	}
	shares, ok := blocks.FloatFromAny(raw["shares"])
	if !ok {
		return Trade{}, false
	}

	value, ok := blocks.FloatFromAny(raw["value"])
	if !ok || value == 0 {
		value = decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(shares)).InexactFloat64()
	}

	return Trade{
		Date:       date,
		Type:       typ,
		Price:      price,
		Shares:     shares,
		Value:      value,
		PriceText:  "$" + FormatNumber(price),
		SharesText: strconv.FormatFloat(shares, 'f', -1, 64),
		ValueText:  "$" + FormatNumber(value),
	}, true
}

// FormatNumber renders v with thousands separators and two decimals.
func FormatNumber(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
