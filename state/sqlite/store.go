// Package sqlite is the durable evaluation-run store backed by an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abhesrivas/industriage/state"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultBusyTimeout = 5 * time.Second
	defaultLimit       = 50
)

type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
	maxOpenConn int
}

type Option func(*Store)

func WithBusyTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) Option {
	return func(s *Store) {
		s.enableWAL = enabled
	}
}

func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConn = n
		}
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	s := &Store{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
		maxOpenConn: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConn)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s.db = db
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	var pragmas []string
	if s.busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout=%d;", int(s.busyTimeout/time.Millisecond)))
	}
	if s.enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;")
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run state.RunRecord) error {
	if run.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if run.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}
	now := time.Now().UTC()
	if run.CreatedAt == nil {
		run.CreatedAt = &now
	}
	if run.UpdatedAt == nil {
		run.UpdatedAt = &now
	}
	if run.Provider == "" {
		run.Provider = "unknown"
	}
	if run.Status == "" {
		run.Status = state.StatusRunning
	}
	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}
	metaRaw, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	const q = `
INSERT INTO runs (
  run_id, workflow, provider, model, status, items, succeeded, average_score, metadata, error, created_at, updated_at, completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  workflow=excluded.workflow,
  provider=excluded.provider,
  model=excluded.model,
  status=excluded.status,
  items=excluded.items,
  succeeded=excluded.succeeded,
  average_score=excluded.average_score,
  metadata=excluded.metadata,
  error=excluded.error,
  updated_at=excluded.updated_at,
  completed_at=excluded.completed_at;
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		run.RunID,
		run.Workflow,
		run.Provider,
		run.Model,
		run.Status,
		run.Items,
		run.Succeeded,
		run.AverageScore,
		string(metaRaw),
		run.Error,
		toNullableTime(run.CreatedAt),
		toNullableTime(run.UpdatedAt),
		toNullableTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *Store) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	if strings.TrimSpace(runID) == "" {
		return state.RunRecord{}, fmt.Errorf("run_id is required")
	}

	const q = `
SELECT run_id, workflow, provider, model, status, items, succeeded, average_score, metadata, error, created_at, updated_at, completed_at
FROM runs
WHERE run_id = ?;
`
	run, err := scanRun(s.db.QueryRowContext(ctx, q, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.RunRecord{}, state.ErrNotFound
		}
		return state.RunRecord{}, err
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	if query.Workflow != "" {
		where = append(where, "workflow = ?")
		args = append(args, query.Workflow)
	}
	if query.Status != "" {
		where = append(where, "status = ?")
		args = append(args, query.Status)
	}

	sqlText := `
SELECT run_id, workflow, provider, model, status, items, succeeded, average_score, metadata, error, created_at, updated_at, completed_at
FROM runs
`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY created_at DESC LIMIT ? OFFSET ?;"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]state.RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
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

	metricsRaw, err := json.Marshal(orEmptyMetrics(item.Metrics))
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	errorsRaw, err := json.Marshal(orEmptyStrings(item.Errors))
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	actualRaw, err := json.Marshal(item.ActualOutput)
	if err != nil {
		return fmt.Errorf("failed to marshal actual output: %w", err)
	}
	expectedRaw, err := json.Marshal(item.ExpectedOutput)
	if err != nil {
		return fmt.Errorf("failed to marshal expected output: %w", err)
	}

	const q = `
INSERT INTO items (run_id, seq, input, success, aggregate_score, metrics, errors, actual_output, expected_output, execution_ns, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		item.RunID,
		item.Seq,
		item.Input,
		boolToInt(item.Success),
		item.AggregateScore,
		string(metricsRaw),
		string(errorsRaw),
		nullIfNullJSON(actualRaw),
		nullIfNullJSON(expectedRaw),
		item.ExecutionTime.Nanoseconds(),
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return state.ErrConflict
		}
		return fmt.Errorf("failed to save item: %w", err)
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

	const q = `
SELECT run_id, seq, input, success, aggregate_score, metrics, errors, actual_output, expected_output, execution_ns, created_at
FROM items
WHERE run_id = ?
ORDER BY seq ASC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, q, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	out := make([]state.ItemRecord, 0, limit)
	for rows.Next() {
		var (
			item        state.ItemRecord
			success     int
			metricsRaw  string
			errorsRaw   string
			actualRaw   sql.NullString
			expectedRaw sql.NullString
			execNS      int64
			createdRaw  string
		)
		if err := rows.Scan(
			&item.RunID,
			&item.Seq,
			&item.Input,
			&success,
			&item.AggregateScore,
			&metricsRaw,
			&errorsRaw,
			&actualRaw,
			&expectedRaw,
			&execNS,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		item.Success = success != 0
		item.ExecutionTime = time.Duration(execNS)
		if err := json.Unmarshal([]byte(metricsRaw), &item.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode item metrics: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsRaw), &item.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode item errors: %w", err)
		}
		if actualRaw.Valid && actualRaw.String != "" {
			if err := json.Unmarshal([]byte(actualRaw.String), &item.ActualOutput); err != nil {
				return nil, fmt.Errorf("failed to decode actual output: %w", err)
			}
		}
		if expectedRaw.Valid && expectedRaw.String != "" {
			if err := json.Unmarshal([]byte(expectedRaw.String), &item.ExpectedOutput); err != nil {
				return nil, fmt.Errorf("failed to decode expected output: %w", err)
			}
		}
		created, err := parseTimeColumn("created_at", createdRaw)
		if err != nil {
			return nil, err
		}
		item.CreatedAt = *created
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (state.RunRecord, error) {
	var (
		run          state.RunRecord
		metadataRaw  string
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	err := row.Scan(
		&run.RunID,
		&run.Workflow,
		&run.Provider,
		&run.Model,
		&run.Status,
		&run.Items,
		&run.Succeeded,
		&run.AverageScore,
		&metadataRaw,
		&run.Error,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.RunRecord{}, sql.ErrNoRows
		}
		return state.RunRecord{}, fmt.Errorf("failed to scan run row: %w", err)
	}
	if strings.TrimSpace(metadataRaw) == "" {
		run.Metadata = map[string]any{}
	} else if err := json.Unmarshal([]byte(metadataRaw), &run.Metadata); err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to decode run metadata: %w", err)
	}
	if run.CreatedAt, err = parseTimeColumn("created_at", createdRaw); err != nil {
		return state.RunRecord{}, err
	}
	if run.UpdatedAt, err = parseTimeColumn("updated_at", updatedRaw); err != nil {
		return state.RunRecord{}, err
	}
	if completedRaw.Valid && strings.TrimSpace(completedRaw.String) != "" {
		if run.CompletedAt, err = parseTimeColumn("completed_at", completedRaw.String); err != nil {
			return state.RunRecord{}, err
		}
	}
	return run, nil
}

func parseTimeColumn(column, raw string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	utc := t.UTC()
	return &utc, nil
}

func toNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullIfNullJSON(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func orEmptyMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
