// Package persist saves and loads named strategies per user.
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/anjaninandan001/algo-tinker/internal/strategy"
)

var (
	ErrNotFound      = errors.New("strategy not found")
	ErrOwnerRequired = errors.New("owner is required")
)

// Record is a saved strategy document.
type Record struct {
	Name      string                    `json:"name"`
	Symbol    string                    `json:"symbol,omitempty"`
	StartDate string                    `json:"startDate,omitempty"`
	EndDate   string                    `json:"endDate,omitempty"`
	Capital   float64                   `json:"capital,omitempty"`
	Blocks    []strategy.PersistedBlock `json:"blocks"`
	Username  string                    `json:"username,omitempty"`
	SavedAt   time.Time                 `json:"saved_at"`
}

// Summary is a listing entry.
type Summary struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol,omitempty"`
	Shared    bool      `json:"shared"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists strategies. Owners only see their own records plus the
// shared ones; an owner's record shadows a shared record of the same name.
type Store interface {
	// Save stores rec under its sanitized name and returns that name.
	Save(ctx context.Context, owner string, rec Record) (string, error)
	List(ctx context.Context, owner string) ([]Summary, error)
	Load(ctx context.Context, owner, name string) (*Record, error)
	Delete(ctx context.Context, owner, name string) error
	// SyncShared upserts records visible to every owner.
	SyncShared(ctx context.Context, recs []Record) error
}

// SanitizeName keeps letters, digits and "._- ". An empty result becomes
// strategy_<unix seconds>.
func SanitizeName(name string, now time.Time) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" || strings.Trim(out, ".") == "" {
		return fmt.Sprintf("strategy_%d", now.Unix())
	}
	return out
}
