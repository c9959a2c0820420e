package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anjaninandan001/algo-tinker/pkg/db"
)

// SQLStore keeps strategies in the saved_strategies table.
type SQLStore struct {
	db  *db.Database
	now func() time.Time
}

func NewSQLStore(database *db.Database) *SQLStore {
	return &SQLStore{db: database, now: time.Now}
}

func (s *SQLStore) Save(ctx context.Context, owner string, rec Record) (string, error) {
	if owner == "" {
		return "", ErrOwnerRequired
	}
	rec.Name = SanitizeName(rec.Name, s.now())
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode strategy: %w", err)
	}
	err = s.db.Queries().SaveStrategy(ctx, owner, db.SavedStrategy{Name: rec.Name, Symbol: rec.Symbol, Payload: string(payload)})
	if err != nil {
		return "", err
	}
	return rec.Name, nil
}

func (s *SQLStore) List(ctx context.Context, owner string) ([]Summary, error) {
	rows, err := s.db.Queries().ListStrategies(ctx, owner)
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]Summary, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, Summary{Name: r.Name, Symbol: r.Symbol, Shared: r.Shared, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

func (s *SQLStore) Load(ctx context.Context, owner, name string) (*Record, error) {
	row, err := s.db.Queries().GetStrategy(ctx, owner, name)
	if err != nil {
		return nil, mapErr(err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
		return nil, fmt.Errorf("decode strategy %s: %w", name, err)
	}
	rec.Name = row.Name
	return &rec, nil
}

func (s *SQLStore) Delete(ctx context.Context, owner, name string) error {
	return mapErr(s.db.Queries().DeleteStrategy(ctx, owner, name))
}

func (s *SQLStore) SyncShared(ctx context.Context, recs []Record) error {
	rows := make([]db.SavedStrategy, 0, len(recs))
	for _, rec := range recs {
		if rec.SavedAt.IsZero() {
			rec.SavedAt = s.now().UTC()
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode strategy %s: %w", rec.Name, err)
		}
		rows = append(rows, db.SavedStrategy{Name: rec.Name, Symbol: rec.Symbol, Payload: string(payload)})
	}
	return s.db.SyncSharedStrategies(ctx, rows)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, db.ErrUserIDRequired):
		return ErrOwnerRequired
	}
	return err
}
