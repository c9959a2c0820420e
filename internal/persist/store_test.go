package persist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
	"github.com/anjaninandan001/algo-tinker/pkg/db"
)

func TestSanitizeName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		in, want string
	}{
		{"My Strategy v1.2", "My Strategy v1.2"},
		{"../../etc/passwd", "....etcpasswd"},
		{"a/b\\c:d*e", "abcde"},
		{"trend_follow-2", "trend_follow-2"},
		{"", "strategy_1700000000"},
		{"///", "strategy_1700000000"},
		{"..", "strategy_1700000000"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in, now); got != tt.want {
			t.Fatalf("SanitizeName(%q)=%q, expected %q", tt.in, got, tt.want)
		}
	}
}

func sampleRecord(name string) Record {
	s := blocks.NewStore()
	s.Create(blocks.TypeIndicator, blocks.SMA, 10, 10)
	entry := s.Create(blocks.TypeEntry, "", 10, 120)
	blocks.Configure(entry, map[string]string{"indicator": "SMA_20", "operator": ">", "value": "close"})
	return Record{Name: name, Symbol: "AAPL", Capital: 10000, Blocks: strategy.Dump(s.All())}
}

func newSQLStore(t *testing.T) Store {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	return NewSQLStore(database)
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test:strategies")
}

func TestStores(t *testing.T) {
	backends := map[string]func(*testing.T) Store{
		"sqlite": newSQLStore,
		"redis":  newRedisStore,
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			exerciseStore(t, open(t))
		})
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	if _, err := s.Save(ctx, "", sampleRecord("x")); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("save without owner err=%v", err)
	}

	name, err := s.Save(ctx, "alice", sampleRecord("Trend/1"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "Trend1" {
		t.Fatalf("saved name=%q", name)
	}

	rec, err := s.Load(ctx, "alice", "Trend1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bs := strategy.ToBlocks(rec.Blocks)
	if len(bs) != 2 || bs[1].Conditions[0].Indicator != "SMA_20" || rec.Symbol != "AAPL" {
		t.Fatalf("loaded=%+v blocks=%+v", rec, bs)
	}
	if rec.SavedAt.IsZero() {
		t.Fatalf("saved_at not stamped")
	}

	if _, err := s.Load(ctx, "bob", "Trend1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user load err=%v", err)
	}

	shared := sampleRecord("SMA Crossover")
	shared.Symbol = "SPY"
	if err := s.SyncShared(ctx, []Record{shared}); err != nil {
		t.Fatalf("SyncShared: %v", err)
	}
	if rec, err := s.Load(ctx, "bob", "SMA Crossover"); err != nil || rec.Symbol != "SPY" {
		t.Fatalf("shared load=%+v err=%v", rec, err)
	}

	mine := sampleRecord("SMA Crossover")
	mine.Symbol = "TSLA"
	if _, err := s.Save(ctx, "bob", mine); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec, _ := s.Load(ctx, "bob", "SMA Crossover"); rec == nil || rec.Symbol != "TSLA" {
		t.Fatalf("own record should shadow shared: %+v", rec)
	}

	list, err := s.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Shared {
		t.Fatalf("bob list=%+v", list)
	}
	list, _ = s.List(ctx, "alice")
	names := make([]string, 0, len(list))
	for _, sm := range list {
		names = append(names, sm.Name)
	}
	if strings.Join(names, ",") != "Trend1,SMA Crossover" || !list[1].Shared {
		t.Fatalf("alice list=%+v", list)
	}

	if err := s.Delete(ctx, "alice", "SMA Crossover"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting shared err=%v", err)
	}
	if err := s.Delete(ctx, "alice", "Trend1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "alice", "Trend1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load after delete err=%v", err)
	}
}
