package graph

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RunState is the per-invocation record threaded through a graph execution.
// Each node receives a fresh copy and returns a new value; no state is shared
// across steps or across concurrent runs.
type RunState struct {
	RunID       string                               `json:"runId"`
	Input       string                               `json:"input"`
	Output      map[string]any                       `json:"output,omitempty"`
	StepResults *orderedmap.OrderedMap[string, any]  `json:"stepResults"`
	Errors      []string                             `json:"errors"`
	Metadata    map[string]any                       `json:"metadata"`
	StartedAt   time.Time                            `json:"startedAt"`
	UpdatedAt   time.Time                            `json:"updatedAt"`
}

func newRunState(runID, input string, now time.Time) RunState {
	return RunState{
		RunID:       runID,
		Input:       input,
		StepResults: orderedmap.New[string, any](),
		Errors:      []string{},
		Metadata:    map[string]any{},
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// clone copies the state so a step can build its successor snapshot without
// aliasing the previous one. Step result values are shared (they are treated
// as immutable once recorded); the containers are fresh.
func (s RunState) clone() RunState {
	next := s
	next.StepResults = orderedmap.New[string, any](s.StepResults.Len() + 1)
	for pair := s.StepResults.Oldest(); pair != nil; pair = pair.Next() {
		next.StepResults.Set(pair.Key, pair.Value)
	}
	next.Errors = append([]string(nil), s.Errors...)
	next.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		next.Metadata[k] = v
	}
	return next
}

// StepResultFor returns the recorded result for a step, if present.
func (s RunState) StepResultFor(name string) (any, bool) {
	if s.StepResults == nil {
		return nil, false
	}
	return s.StepResults.Get(name)
}

// StepOrder returns step names in execution order.
func (s RunState) StepOrder() []string {
	if s.StepResults == nil {
		return nil
	}
	out := make([]string, 0, s.StepResults.Len())
	for pair := s.StepResults.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
