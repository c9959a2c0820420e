package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const sharedKey = "_shared"

// RedisStore keeps one hash per owner, field = strategy name, value = JSON
// record.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "algoblocks:strategies"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(owner string) string {
	return s.prefix + ":" + owner
}

func (s *RedisStore) Save(ctx context.Context, owner string, rec Record) (string, error) {
	if owner == "" {
		return "", ErrOwnerRequired
	}
	rec.Name = SanitizeName(rec.Name, s.now())
	rec.SavedAt = s.now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode strategy: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.key(owner), rec.Name, payload).Err(); err != nil {
		return "", fmt.Errorf("redis save strategy: %w", err)
	}
	return rec.Name, nil
}

func (s *RedisStore) List(ctx context.Context, owner string) ([]Summary, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	own, err := s.summaries(ctx, owner, false)
	if err != nil {
		return nil, err
	}
	shared, err := s.summaries(ctx, sharedKey, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(own))
	for _, sm := range own {
		seen[sm.Name] = true
	}
	for _, sm := range shared {
		if !seen[sm.Name] {
			own = append(own, sm)
		}
	}
	return own, nil
}

func (s *RedisStore) summaries(ctx context.Context, owner string, shared bool) ([]Summary, error) {
	all, err := s.rdb.HGetAll(ctx, s.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list strategies: %w", err)
	}
	out := make([]Summary, 0, len(all))
	for name, raw := range all {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Warnf("[PERSIST] skipping unreadable strategy %s/%s: %v", owner, name, err)
			continue
		}
		out = append(out, Summary{Name: name, Symbol: rec.Symbol, Shared: shared, UpdatedAt: rec.SavedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *RedisStore) Load(ctx context.Context, owner, name string) (*Record, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	for _, k := range []string{owner, sharedKey} {
		raw, err := s.rdb.HGet(ctx, s.key(k), name).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis load strategy: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode strategy %s: %w", name, err)
		}
		rec.Name = name
		return &rec, nil
	}
	return nil, ErrNotFound
}

func (s *RedisStore) Delete(ctx context.Context, owner, name string) error {
	if owner == "" {
		return ErrOwnerRequired
	}
	n, err := s.rdb.HDel(ctx, s.key(owner), name).Result()
	if err != nil {
		return fmt.Errorf("redis delete strategy: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) SyncShared(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	for _, rec := range recs {
		rec.SavedAt = s.now().UTC()
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode strategy %s: %w", rec.Name, err)
		}
		pipe.HSet(ctx, s.key(sharedKey), rec.Name, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sync shared strategies: %w", err)
	}
	return nil
}
