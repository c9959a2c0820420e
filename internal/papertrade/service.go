// Package papertrade simulates order fills against a per-user cash balance.
package papertrade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anjaninandan001/algo-tinker/pkg/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSymbolRequired    = errors.New("symbol is required")
	ErrQuantity          = errors.New("quantity must be positive")
	ErrSide              = errors.New("side must be 'buy' or 'sell'")
	ErrOrderType         = errors.New("order type must be 'market' or 'limit'")
	ErrLimitPrice        = errors.New("valid price is required for limit orders")
	ErrInsufficientFunds = errors.New("Insufficient funds")
)

const (
	SideBuy  = "buy"
	SideSell = "sell"

	TypeMarket = "market"
	TypeLimit  = "limit"

	statusExecuted = "executed"
)

// Order is a paper order as submitted by the client.
type Order struct {
	Symbol    string           `json:"symbol"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Side      string           `json:"side"`
	OrderType string           `json:"orderType"`
	Price     *decimal.Decimal `json:"price"`
	Notes     string           `json:"notes"`
}

// Fill is an executed paper trade.
type Fill struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Side      string          `json:"side"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes"`
}

// Config holds the simulation constants.
type Config struct {
	StartCash decimal.Decimal
	// FallbackPrice fills market orders; there is no live quote source.
	FallbackPrice decimal.Decimal
}

func DefaultConfig() Config {
	return Config{StartCash: decimal.NewFromInt(10000), FallbackPrice: decimal.NewFromInt(100)}
}

// Service executes paper orders and keeps the history in the database.
// Cash is derived from the history, so only fills are stored.
type Service struct {
	q   *db.UserQueries
	cfg Config
	now func() time.Time

	mu sync.Mutex
}

func NewService(database *db.Database, cfg Config) *Service {
	if cfg.StartCash.IsZero() {
		cfg.StartCash = DefaultConfig().StartCash
	}
	if !cfg.FallbackPrice.IsPositive() {
		cfg.FallbackPrice = DefaultConfig().FallbackPrice
	}
	return &Service{q: database.Queries(), cfg: cfg, now: time.Now}
}

// Normalize lowercases side and type, applies the buy/market defaults and
// validates o.
func (o *Order) Normalize() error {
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	o.Side = strings.ToLower(strings.TrimSpace(o.Side))
	o.OrderType = strings.ToLower(strings.TrimSpace(o.OrderType))
	if o.Side == "" {
		o.Side = SideBuy
	}
	if o.OrderType == "" {
		o.OrderType = TypeMarket
	}

	switch {
	case o.Symbol == "":
		return ErrSymbolRequired
	case !o.Quantity.IsPositive():
		return ErrQuantity
	case o.Side != SideBuy && o.Side != SideSell:
		return ErrSide
	case o.OrderType != TypeMarket && o.OrderType != TypeLimit:
		return ErrOrderType
	case o.OrderType == TypeLimit && (o.Price == nil || !o.Price.IsPositive()):
		return ErrLimitPrice
	}
	return nil
}

// Execute fills o for userID. Limit orders fill at their limit price,
// market orders at the fallback price. Buys must be covered by cash.
func (s *Service) Execute(ctx context.Context, userID string, o Order) (*Fill, error) {
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	price := s.cfg.FallbackPrice
	if o.OrderType == TypeLimit {
		price = *o.Price
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Side == SideBuy {
		cash, err := s.cash(ctx, userID)
		if err != nil {
			return nil, err
		}
		if cost := o.Quantity.Mul(price); cash.LessThan(cost) {
			return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), cash.StringFixed(2))
		}
	}

	fill := &Fill{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Symbol:    o.Symbol,
		Quantity:  o.Quantity,
		Side:      o.Side,
		Type:      o.OrderType,
		Price:     price,
		Status:    statusExecuted,
		Notes:     o.Notes,
	}
	err := s.q.CreatePaperTrade(ctx, db.PaperTrade{
		ID:        fill.ID,
		UserID:    userID,
		Symbol:    fill.Symbol,
		Side:      fill.Side,
		OrderType: fill.Type,
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		Notes:     fill.Notes,
		Status:    fill.Status,
		CreatedAt: fill.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[PAPER] %s %s %s x%s @ %s", userID, fill.Side, fill.Symbol, fill.Quantity, fill.Price.StringFixed(2))
	return fill, nil
}

func (s *Service) cash(ctx context.Context, userID string) (decimal.Decimal, error) {
	trades, err := s.q.GetPaperTradesByUser(ctx, userID, 0)
	if err != nil {
		return decimal.Zero, err
	}
	return cashAfter(s.cfg.StartCash, trades), nil
}

func cashAfter(start decimal.Decimal, trades []db.PaperTrade) decimal.Decimal {
	cash := start
	for _, t := range trades {
		v := t.Quantity.Mul(t.Price)
		if t.Side == SideBuy {
			cash = cash.Sub(v)
		} else {
			cash = cash.Add(v)
		}
	}
	return cash
}
