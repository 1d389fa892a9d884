// Package redis is the evaluation-run store backed by Redis, suited to
// short-lived shared state; records expire after a TTL.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhesrivas/industriage/state"
)

const (
	defaultTTL    = 72 * time.Hour
	defaultLimit  = 50
	defaultPrefix = "industriage"
)

type Store struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*Store)

func WithPassword(password string) Option {
	return func(s *Store) { s.password = password }
}

func WithDB(db int) Option {
	return func(s *Store) { s.db = db }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &Store{ttl: defaultTTL, prefix: defaultPrefix, addr: addr}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}
	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

// Key layout:
//
//	<prefix>:run:<run_id>              run record JSON
//	<prefix>:runidx:workflow:<name>    zset of run ids scored by updated_at
//	<prefix>:item:<run_id>:<seq>       item record JSON
//	<prefix>:itemidx:<run_id>          zset of seqs
func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) runKey(runID string) string { return s.key("run", runID) }

func (s *Store) SaveRun(ctx context.Context, run state.RunRecord) error {
	if run.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if run.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}
	stampRun(&run)

	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	index := s.key("runidx", "workflow", run.Workflow)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(run.RunID), string(raw), s.ttl)
	pipe.ZAdd(ctx, index, goredis.Z{Score: float64(run.UpdatedAt.Unix()), Member: run.RunID})
	pipe.Expire(ctx, index, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run in redis: %w", err)
	}
	return nil
}

func stampRun(run *state.RunRecord) {
	now := time.Now().UTC()
	if run.CreatedAt == nil {
		run.CreatedAt = &now
	}
	if run.UpdatedAt == nil {
		run.UpdatedAt = &now
	}
	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}
}

func (s *Store) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	if runID == "" {
		return state.RunRecord{}, fmt.Errorf("run_id is required")
	}

	var run state.RunRecord
	raw, err := s.client.Get(ctx, s.runKey(runID)).Result()
	switch {
	case err == goredis.Nil:
		return run, state.ErrNotFound
	case err != nil:
		return run, fmt.Errorf("failed to load run from redis: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return run, fmt.Errorf("failed to decode run from redis: %w", err)
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	limit, offset := query.Limit, query.Offset
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	var ids []string
	var err error
	if query.Workflow != "" {
		ids, err = s.client.ZRevRange(ctx, s.key("runidx", "workflow", query.Workflow),
			int64(offset), int64(offset+limit-1)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list run ids by workflow: %w", err)
		}
	} else if ids, err = s.scanRunIDs(ctx, limit); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []state.RunRecord{}, nil
	}

	runs, stale, err := s.fetchRuns(ctx, ids, query.Status)
	if err != nil {
		return nil, err
	}
	// Drop run ids whose records expired under the index.
	if query.Workflow != "" && len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.key("runidx", "workflow", query.Workflow), stale...).Err()
	}

	sort.Slice(runs, func(i, j int) bool {
		return updatedAt(runs[i]).After(updatedAt(runs[j]))
	})
	return runs, nil
}

func (s *Store) scanRunIDs(ctx context.Context, limit int) ([]string, error) {
	keyPrefix := s.key("run", "")
	ids := make([]string, 0, limit)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", int64(limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis run keys: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
			if len(ids) >= limit {
				return ids, nil
			}
		}
		if cursor = next; cursor == 0 {
			return ids, nil
		}
	}
}

func (s *Store) fetchRuns(ctx context.Context, ids []string, status string) ([]state.RunRecord, []any, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mget runs from redis: %w", err)
	}

	runs := make([]state.RunRecord, 0, len(values))
	var stale []any
	for i, raw := range values {
		if raw == nil {
			stale = append(stale, ids[i])
			continue
		}
		var run state.RunRecord
		if json.Unmarshal([]byte(fmt.Sprint(raw)), &run) != nil {
			continue
		}
		if status != "" && run.Status != status {
			continue
		}
		runs = append(runs, run)
	}
	return runs, stale, nil
}

func updatedAt(run state.RunRecord) time.Time {
	if run.UpdatedAt == nil {
		return time.Time{}
	}
	return *run.UpdatedAt
}

func (s *Store) SaveItem(ctx context.Context, item state.ItemRecord) error {
	if item.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if item.Seq < 0 {
		return fmt.Errorf("seq must be >= 0")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	seq := strconv.Itoa(item.Seq)
	ok, err := s.client.SetNX(ctx, s.key("item", item.RunID, seq), string(raw), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save item in redis: %w", err)
	}
	if !ok {
		return state.ErrConflict
	}

	index := s.key("itemidx", item.RunID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, index, goredis.Z{Score: float64(item.Seq), Member: seq})
	pipe.Expire(ctx, index, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index item in redis: %w", err)
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context, runID string, limit int) ([]state.ItemRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	seqs, err := s.client.ZRange(ctx, s.key("itemidx", runID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list item seqs: %w", err)
	}
	if len(seqs) == 0 {
		return []state.ItemRecord{}, nil
	}

	keys := make([]string, len(seqs))
	for i, seq := range seqs {
		keys[i] = s.key("item", runID, seq)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load item values: %w", err)
	}

	items := make([]state.ItemRecord, 0, len(values))
	for _, raw := range values {
		if raw == nil {
			continue
		}
		var item state.ItemRecord
		if json.Unmarshal([]byte(fmt.Sprint(raw)), &item) == nil {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
