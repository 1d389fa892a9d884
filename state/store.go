// Package state persists evaluation runs and their per-item results.
package state

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("state: not found")
	ErrConflict = errors.New("state: conflict")
)

type ListRunsQuery struct {
	Workflow string
	Status   string
	Limit    int
	Offset   int
}

type Store interface {
	SaveRun(ctx context.Context, run RunRecord) error
	LoadRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context, query ListRunsQuery) ([]RunRecord, error)

	SaveItem(ctx context.Context, item ItemRecord) error
	ListItems(ctx context.Context, runID string, limit int) ([]ItemRecord, error)

	Close() error
}
