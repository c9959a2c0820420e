package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SharedOwner owns strategies visible to every user (seeded templates).
const SharedOwner = ""

// User represents an application user.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SavedStrategy is a named block dump. Payload is the JSON document.
type SavedStrategy struct {
	OwnerID   string
	Name      string
	Symbol    string
	Payload   string
	Shared    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaperTrade is one simulated fill.
type PaperTrade struct {
	ID        string
	UserID    string
	Symbol    string
	Side      string
	OrderType string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notes     string
	Status    string
	CreatedAt time.Time
}

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
	`, u.ID, strings.ToLower(u.Email), u.Username, u.PasswordHash, nullTime(u.CreatedAt), nullTime(u.UpdatedAt))
	return err
}

// GetUserByEmail returns a user by email or nil if not found.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, strings.ToLower(email))
	return scanUser(row)
}

// GetUserByID returns a user by id or nil if not found.
func (d *Database) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SyncSharedStrategies upserts the shared strategies in one transaction.
// Rows not in list are left alone.
func (d *Database) SyncSharedStrategies(ctx context.Context, list []SavedStrategy) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO saved_strategies (owner_id, name, symbol, payload, shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			symbol = excluded.symbol,
			payload = excluded.payload,
			shared = 1,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range list {
		if _, err := stmt.ExecContext(ctx, SharedOwner, s.Name, s.Symbol, s.Payload); err != nil {
			return fmt.Errorf("sync shared strategy %s: %w", s.Name, err)
		}
	}
	return tx.Commit()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
