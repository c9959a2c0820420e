package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database := newTestDB(t)
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
	ok, err := columnExists(database.DB, "saved_strategies", "shared")
	if err != nil || !ok {
		t.Fatalf("shared column missing: %v", err)
	}
}

func TestUserQueriesRequireUserID(t *testing.T) {
	q := newTestDB(t).Queries()
	ctx := context.Background()

	t.Run("SaveStrategy requires userID", func(t *testing.T) {
		if err := q.SaveStrategy(ctx, "", SavedStrategy{Name: "x", Payload: "{}"}); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})
	t.Run("ListStrategies requires userID", func(t *testing.T) {
		if _, err := q.ListStrategies(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})
	t.Run("GetStrategy requires userID", func(t *testing.T) {
		if _, err := q.GetStrategy(ctx, "", "x"); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})
	t.Run("GetPaperTradesByUser requires userID", func(t *testing.T) {
		if _, err := q.GetPaperTradesByUser(ctx, "", 10); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})
}

func TestUsers(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if err := database.CreateUser(ctx, User{ID: "u1", Email: "Ann@Example.com", Username: "ann", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err := database.GetUserByEmail(ctx, "ANN@example.com")
	if err != nil || u == nil {
		t.Fatalf("GetUserByEmail: %v %v", u, err)
	}
	if u.Email != "ann@example.com" || u.Username != "ann" {
		t.Fatalf("user=%+v", u)
	}
	if u, err := database.GetUserByEmail(ctx, "nobody@example.com"); u != nil || err != nil {
		t.Fatalf("missing user=%v err=%v", u, err)
	}
	if err := database.CreateUser(ctx, User{ID: "u2", Email: "ann@example.com", PasswordHash: "h"}); err == nil {
		t.Fatalf("duplicate email accepted")
	}
	if u, _ := database.GetUserByID(ctx, "u1"); u == nil {
		t.Fatalf("GetUserByID found nothing")
	}
}

func TestStrategyIsolationAndShared(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()

	if err := database.SyncSharedStrategies(ctx, []SavedStrategy{
		{Name: "SMA Crossover", Symbol: "AAPL", Payload: `{"v":"shared"}`},
		{Name: "RSI Reversion", Symbol: "SPY", Payload: `{}`},
	}); err != nil {
		t.Fatalf("SyncSharedStrategies: %v", err)
	}
	if err := q.SaveStrategy(ctx, "user-a", SavedStrategy{Name: "SMA Crossover", Symbol: "MSFT", Payload: `{"v":"mine"}`}); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if err := q.SaveStrategy(ctx, "user-b", SavedStrategy{Name: "private", Payload: `{}`}); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}

	t.Run("own strategy shadows shared", func(t *testing.T) {
		s, err := q.GetStrategy(ctx, "user-a", "SMA Crossover")
		if err != nil {
			t.Fatalf("GetStrategy: %v", err)
		}
		if s.Payload != `{"v":"mine"}` || s.Shared {
			t.Fatalf("strategy=%+v", s)
		}
	})
	t.Run("shared visible to others", func(t *testing.T) {
		s, err := q.GetStrategy(ctx, "user-b", "SMA Crossover")
		if err != nil || !s.Shared || s.Payload != `{"v":"shared"}` {
			t.Fatalf("strategy=%+v err=%v", s, err)
		}
	})
	t.Run("other users cannot read private", func(t *testing.T) {
		if _, err := q.GetStrategy(ctx, "user-a", "private"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err=%v, expected ErrNotFound", err)
		}
	})
	t.Run("list puts own first", func(t *testing.T) {
		list, err := q.ListStrategies(ctx, "user-a")
		if err != nil {
			t.Fatalf("ListStrategies: %v", err)
		}
		if len(list) != 3 || list[0].Shared || !list[1].Shared {
			t.Fatalf("list=%+v", list)
		}
	})
	t.Run("shared cannot be deleted by users", func(t *testing.T) {
		if err := q.DeleteStrategy(ctx, "user-b", "RSI Reversion"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err=%v", err)
		}
		if err := q.DeleteStrategy(ctx, "user-b", "private"); err != nil {
			t.Fatalf("DeleteStrategy: %v", err)
		}
	})
}

func TestPaperTrades(t *testing.T) {
	database := newTestDB(t)
	q := database.Queries()
	ctx := context.Background()
	if err := database.CreateUser(ctx, User{ID: "u1", Email: "a@b.c", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, side := range []string{"buy", "sell"} {
		err := q.CreatePaperTrade(ctx, PaperTrade{
			ID:        side,
			UserID:    "u1",
			Symbol:    "AAPL",
			Side:      side,
			OrderType: "market",
			Quantity:  decimal.RequireFromString("1.5"),
			Price:     decimal.RequireFromString("100.10"),
			Status:    "FILLED",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreatePaperTrade: %v", err)
		}
	}

	trades, err := q.GetPaperTradesByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("GetPaperTradesByUser: %v", err)
	}
	if len(trades) != 2 || trades[0].Side != "buy" {
		t.Fatalf("trades=%+v", trades)
	}
	if !trades[0].Price.Equal(decimal.RequireFromString("100.1")) || !trades[0].Quantity.Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("decimal round trip: %+v", trades[0])
	}
	if other, _ := q.GetPaperTradesByUser(ctx, "u2", 0); len(other) != 0 {
		t.Fatalf("user isolation broken: %+v", other)
	}
}
