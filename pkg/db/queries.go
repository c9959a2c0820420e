// Package db provides user-isolated database queries for multi-tenant architecture.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrUserIDRequired = errors.New("user_id is required for data isolation")
	ErrNotFound       = errors.New("record not found")
)

// UserQueries provides user-isolated database queries.
type UserQueries struct {
	db *sql.DB
}

// NewUserQueries creates a new UserQueries instance.
func NewUserQueries(db *sql.DB) *UserQueries {
	return &UserQueries{db: db}
}

// Queries returns user-isolated queries over d.
func (d *Database) Queries() *UserQueries {
	return NewUserQueries(d.DB)
}

// ----------------------------------------
// Saved strategy queries
// ----------------------------------------

// SaveStrategy creates or overwrites the user's strategy with the same name.
func (q *UserQueries) SaveStrategy(ctx context.Context, userID string, s SavedStrategy) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO saved_strategies (owner_id, name, symbol, payload, shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			symbol = excluded.symbol,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, userID, s.Name, s.Symbol, s.Payload)
	if err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

// ListStrategies returns the user's strategies followed by the shared ones.
// Payloads are not loaded.
func (q *UserQueries) ListStrategies(ctx context.Context, userID string) ([]SavedStrategy, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT owner_id, name, symbol, shared, created_at, updated_at
		FROM saved_strategies
		WHERE owner_id = ? OR (owner_id = ? AND shared = 1)
		ORDER BY shared ASC, updated_at DESC, name ASC
	`, userID, SharedOwner)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var out []SavedStrategy
	for rows.Next() {
		var s SavedStrategy
		if err := rows.Scan(&s.OwnerID, &s.Name, &s.Symbol, &s.Shared, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStrategy returns the named strategy. The user's own strategy wins over
// a shared one with the same name.
func (q *UserQueries) GetStrategy(ctx context.Context, userID, name string) (*SavedStrategy, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	row := q.db.QueryRowContext(ctx, `
		SELECT owner_id, name, symbol, payload, shared, created_at, updated_at
		FROM saved_strategies
		WHERE name = ? AND (owner_id = ? OR (owner_id = ? AND shared = 1))
		ORDER BY shared ASC
		LIMIT 1
	`, name, userID, SharedOwner)
	var s SavedStrategy
	if err := row.Scan(&s.OwnerID, &s.Name, &s.Symbol, &s.Payload, &s.Shared, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeleteStrategy removes one of the user's own strategies.
func (q *UserQueries) DeleteStrategy(ctx context.Context, userID, name string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM saved_strategies WHERE owner_id = ? AND name = ?`, userID, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----------------------------------------
// Paper trade queries
// ----------------------------------------

// CreatePaperTrade records a fill for t.UserID.
func (q *UserQueries) CreatePaperTrade(ctx context.Context, t PaperTrade) error {
	if t.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO paper_trades (id, user_id, symbol, side, order_type, quantity, price, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`, t.ID, t.UserID, t.Symbol, t.Side, t.OrderType, t.Quantity.String(), t.Price.String(), t.Notes, t.Status, nullTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert paper trade: %w", err)
	}
	return nil
}

// GetPaperTradesByUser returns the user's trades oldest first. limit <= 0
// returns all of them.
func (q *UserQueries) GetPaperTradesByUser(ctx context.Context, userID string, limit int) ([]PaperTrade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, side, order_type, quantity, price, COALESCE(notes, ''), status, created_at
		FROM paper_trades
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query paper trades: %w", err)
	}
	defer rows.Close()

	var out []PaperTrade
	for rows.Next() {
		var t PaperTrade
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.OrderType, &t.Quantity, &t.Price, &t.Notes, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan paper trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
