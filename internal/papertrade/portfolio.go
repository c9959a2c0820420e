package papertrade

import (
	"context"

	"github.com/anjaninandan001/algo-tinker/pkg/db"

	"github.com/shopspring/decimal"
)

// Position is an open long position.
type Position struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// Stats summarizes the trade history.
type Stats struct {
	TotalTrades     int             `json:"total_trades"`
	WinRate         decimal.Decimal `json:"win_rate"`
	ProfitLoss      decimal.Decimal `json:"profit_loss"`
	ActivePositions []Position      `json:"active_positions"`
}

// Portfolio is the user's cash, history and stats.
type Portfolio struct {
	Cash   decimal.Decimal `json:"cash"`
	Trades []Fill          `json:"trades"`
	Stats  Stats           `json:"stats"`
}

// Portfolio replays the user's history. Sells realize P&L against the
// average cost of the position; a sell is a win when that P&L is positive.
// Win rate is wins over all trades, in percent.
func (s *Service) Portfolio(ctx context.Context, userID string) (*Portfolio, error) {
	trades, err := s.q.GetPaperTradesByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	p := &Portfolio{
		Cash:   cashAfter(s.cfg.StartCash, trades),
		Trades: make([]Fill, 0, len(trades)),
		Stats:  summarize(trades),
	}
	for _, t := range trades {
		p.Trades = append(p.Trades, Fill{
			ID:        t.ID,
			Timestamp: t.CreatedAt,
			Symbol:    t.Symbol,
			Quantity:  t.Quantity,
			Side:      t.Side,
			Type:      t.OrderType,
			Price:     t.Price,
			Status:    t.Status,
			Notes:     t.Notes,
		})
	}
	return p, nil
}

func summarize(trades []db.PaperTrade) Stats {
	type book struct {
		qty, avg, cost decimal.Decimal
	}
	var (
		order   []string
		books   = map[string]*book{}
		wins    int
		pnl     = decimal.Zero
		hundred = decimal.NewFromInt(100)
	)

	for _, t := range trades {
		switch t.Side {
		case SideBuy:
			b, ok := books[t.Symbol]
			if !ok {
				b = &book{}
				books[t.Symbol] = b
				order = append(order, t.Symbol)
			}
			b.qty = b.qty.Add(t.Quantity)
			b.cost = b.cost.Add(t.Quantity.Mul(t.Price))
			if b.qty.IsPositive() {
				b.avg = b.cost.Div(b.qty)
			}
		case SideSell:
			b, ok := books[t.Symbol]
			if !ok {
				continue
			}
			if b.qty.IsPositive() {
				realized := t.Quantity.Mul(t.Price).Sub(t.Quantity.Mul(b.avg))
				pnl = pnl.Add(realized)
				if realized.IsPositive() {
					wins++
				}
			}
			remaining := b.qty.Sub(t.Quantity)
			if !remaining.IsPositive() {
				*b = book{}
				continue
			}
			b.cost = b.cost.Mul(remaining).Div(b.qty)
			b.qty = remaining
		}
	}

	st := Stats{
		TotalTrades:     len(trades),
		WinRate:         decimal.Zero,
		ProfitLoss:      pnl,
		ActivePositions: []Position{},
	}
	if len(trades) > 0 {
		st.WinRate = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(trades)))).Mul(hundred)
	}
	for _, sym := range order {
		b := books[sym]
		if b.qty.IsPositive() {
			st.ActivePositions = append(st.ActivePositions, Position{Symbol: sym, Quantity: b.qty, AvgPrice: b.avg, TotalCost: b.cost})
		}
	}
	return st
}
