// Package hybrid layers a cache store (typically redis) over a durable store
// (typically sqlite): writes go to both, reads prefer the cache and fall back
// to the durable store.
package hybrid

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhesrivas/industriage/state"
)

type Store struct {
	durable state.Store
	cache   state.Store
}

// New builds a hybrid store. The durable store is required; a nil cache
// degrades to the durable store alone.
func New(durable, cache state.Store) (*Store, error) {
	if durable == nil {
		return nil, fmt.Errorf("hybrid: durable store is required")
	}
	return &Store{durable: durable, cache: cache}, nil
}

func (s *Store) SaveRun(ctx context.Context, run state.RunRecord) error {
	if err := s.durable.SaveRun(ctx, run); err != nil {
		return err
	}
	if s.cache != nil {
		// Cache writes are best effort; durability already holds.
		_ = s.cache.SaveRun(ctx, run)
	}
	return nil
}

func (s *Store) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	if s.cache != nil {
		if run, err := s.cache.LoadRun(ctx, runID); err == nil {
			return run, nil
		}
	}
	run, err := s.durable.LoadRun(ctx, runID)
	if err != nil {
		return state.RunRecord{}, err
	}
	if s.cache != nil {
		_ = s.cache.SaveRun(ctx, run)
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	// Listing is served from the durable store; the cache can have expired
	// entries and would under-report.
	return s.durable.ListRuns(ctx, query)
}

func (s *Store) SaveItem(ctx context.Context, item state.ItemRecord) error {
	if err := s.durable.SaveItem(ctx, item); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.SaveItem(ctx, item); err != nil && !errors.Is(err, state.ErrConflict) {
			return nil
		}
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context, runID string, limit int) ([]state.ItemRecord, error) {
	return s.durable.ListItems(ctx, runID, limit)
}

func (s *Store) Close() error {
	var firstErr error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.durable.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
