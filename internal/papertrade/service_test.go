package papertrade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjaninandan001/algo-tinker/pkg/db"

	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	if err := database.CreateUser(context.Background(), db.User{ID: "u1", Email: "u1@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	svc := NewService(database, DefaultConfig())
	tick := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		err   error
	}{
		{"missing symbol", Order{Quantity: dec("1")}, ErrSymbolRequired},
		{"zero quantity", Order{Symbol: "AAPL"}, ErrQuantity},
		{"negative quantity", Order{Symbol: "AAPL", Quantity: dec("-2")}, ErrQuantity},
		{"bad side", Order{Symbol: "AAPL", Quantity: dec("1"), Side: "short"}, ErrSide},
		{"bad type", Order{Symbol: "AAPL", Quantity: dec("1"), OrderType: "stop"}, ErrOrderType},
		{"limit without price", Order{Symbol: "AAPL", Quantity: dec("1"), OrderType: "limit"}, ErrLimitPrice},
		{"limit zero price", Order{Symbol: "AAPL", Quantity: dec("1"), OrderType: "LIMIT", Price: price("0")}, ErrLimitPrice},
		{"defaults", Order{Symbol: "aapl", Quantity: dec("1")}, nil},
		{"limit ok", Order{Symbol: "AAPL", Quantity: dec("1"), Side: "SELL", OrderType: "Limit", Price: price("12.5")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.order
			if err := o.Normalize(); !errors.Is(err, tt.err) {
				t.Fatalf("err=%v, expected %v", err, tt.err)
			}
		})
	}

	o := Order{Symbol: " msft ", Quantity: dec("1")}
	_ = o.Normalize()
	if o.Symbol != "MSFT" || o.Side != SideBuy || o.OrderType != TypeMarket {
		t.Fatalf("normalized=%+v", o)
	}
}

func TestExecuteMarketUsesFallbackPrice(t *testing.T) {
	svc := newTestService(t)
	fill, err := svc.Execute(context.Background(), "u1", Order{Symbol: "AAPL", Quantity: dec("10")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !fill.Price.Equal(dec("100")) || fill.Status != "executed" || fill.ID == "" {
		t.Fatalf("fill=%+v", fill)
	}
}

func TestExecuteInsufficientFunds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Execute(ctx, "u1", Order{Symbol: "AAPL", Quantity: dec("100")}); err != nil {
		t.Fatalf("spending all cash: %v", err)
	}
	_, err := svc.Execute(ctx, "u1", Order{Symbol: "AAPL", Quantity: dec("1"), OrderType: "limit", Price: price("0.01")})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err=%v, expected ErrInsufficientFunds", err)
	}
	if _, err := svc.Execute(ctx, "u1", Order{Symbol: "AAPL", Quantity: dec("5"), Side: "sell"}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	p, err := svc.Portfolio(ctx, "u1")
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if !p.Cash.Equal(dec("500")) || len(p.Trades) != 2 {
		t.Fatalf("portfolio cash=%s trades=%d", p.Cash, len(p.Trades))
	}
}

func TestPortfolioStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orders := []Order{
		{Symbol: "AAPL", Quantity: dec("10"), OrderType: "limit", Price: price("10")},
		{Symbol: "AAPL", Quantity: dec("10"), OrderType: "limit", Price: price("20")},
		{Symbol: "MSFT", Quantity: dec("2"), OrderType: "limit", Price: price("50")},
		{Symbol: "AAPL", Quantity: dec("5"), Side: "sell", OrderType: "limit", Price: price("25")},
		{Symbol: "MSFT", Quantity: dec("2"), Side: "sell", OrderType: "limit", Price: price("40")},
	}
	for _, o := range orders {
		if _, err := svc.Execute(ctx, "u1", o); err != nil {
			t.Fatalf("Execute %+v: %v", o, err)
		}
	}

	p, err := svc.Portfolio(ctx, "u1")
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	st := p.Stats
	if st.TotalTrades != 5 {
		t.Fatalf("total trades=%d", st.TotalTrades)
	}
	// AAPL avg 15: +50 on the partial sell. MSFT avg 50: -20.
	if !st.ProfitLoss.Equal(dec("30")) {
		t.Fatalf("p/l=%s", st.ProfitLoss)
	}
	if !st.WinRate.Equal(dec("20")) {
		t.Fatalf("win rate=%s", st.WinRate)
	}
	if len(st.ActivePositions) != 1 {
		t.Fatalf("positions=%+v", st.ActivePositions)
	}
	pos := st.ActivePositions[0]
	if pos.Symbol != "AAPL" || !pos.Quantity.Equal(dec("15")) || !pos.AvgPrice.Equal(dec("15")) || !pos.TotalCost.Equal(dec("225")) {
		t.Fatalf("position=%+v", pos)
	}
	// 10000 - 100 - 200 - 100 + 125 + 80
	if !p.Cash.Equal(dec("9805")) {
		t.Fatalf("cash=%s", p.Cash)
	}
}

func TestPortfolioEmpty(t *testing.T) {
	p, err := newTestService(t).Portfolio(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if !p.Cash.Equal(dec("10000")) || p.Stats.TotalTrades != 0 || p.Stats.ActivePositions == nil || !p.Stats.WinRate.IsZero() {
		t.Fatalf("portfolio=%+v", p)
	}
}
