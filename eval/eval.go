// Package eval runs datasets through a compiled workflow graph, scores every
// item with a metric set, and accumulates per-item results.
package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/metric"
	"github.com/abhesrivas/industriage/observe"
	"github.com/abhesrivas/industriage/types"
)

// Item is one dataset entry: the raw input text and, optionally, the output
// the workflow is expected to produce.
type Item struct {
	Input          string         `json:"input"`
	ExpectedOutput map[string]any `json:"expected_output,omitempty"`
}

// Result records one evaluated item. Success reflects whether processing
// itself completed; step and validation failures inside the run are carried
// in Errors without flipping Success.
type Result struct {
	Input          string             `json:"input"`
	ExpectedOutput map[string]any     `json:"expected_output,omitempty"`
	ActualOutput   map[string]any     `json:"actual_output"`
	Metrics        map[string]float64 `json:"metrics"`
	AggregateScore float64            `json:"aggregate_score"`
	ExecutionTime  time.Duration      `json:"execution_time"`
	Success        bool               `json:"success"`
	Errors         []string           `json:"errors"`
}

// Executor is the compiled-graph capability the session needs.
type Executor interface {
	Execute(ctx context.Context, input string) graph.RunState
}

// Session evaluates items strictly sequentially, one fresh graph run per item.
type Session struct {
	executor     Executor
	metrics      *metric.Set
	emptyDefault map[string]any
	sink         observe.Sink
	workflow     string
	now          func() time.Time
}

type Option func(*Session)

// WithEmptyDefault sets the structure substituted for a null graph output so
// downstream scoring always sees a concrete value.
func WithEmptyDefault(def map[string]any) Option {
	return func(s *Session) { s.emptyDefault = def }
}

func WithSink(sink observe.Sink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithWorkflowName(name string) Option {
	return func(s *Session) { s.workflow = name }
}

func NewSession(executor Executor, metrics *metric.Set, opts ...Option) (*Session, error) {
	if executor == nil {
		return nil, fmt.Errorf("eval: nil executor")
	}
	if metrics == nil {
		return nil, fmt.Errorf("eval: nil metric set")
	}
	s := &Session{
		executor: executor,
		metrics:  metrics,
		sink:     observe.NoopSink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run evaluates every item in order. A failing item is recorded and the run
// continues; only context cancellation stops early, between items, returning
// the results accumulated so far together with the context error.
func (s *Session) Run(ctx context.Context, items []Item) ([]Result, error) {
	results := make([]Result, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.emit(ctx, types.Event{
			Type:      types.EventItemStarted,
			Timestamp: s.now().UTC(),
			Workflow:  s.workflow,
			ItemIndex: i + 1,
		})
		result := s.runItem(ctx, item)
		results = append(results, result)
		s.emit(ctx, types.Event{
			Type:      types.EventItemCompleted,
			Timestamp: s.now().UTC(),
			Workflow:  s.workflow,
			ItemIndex: i + 1,
			Message:   fmt.Sprintf("aggregate=%.3f", result.AggregateScore),
		})
	}
	return results, nil
}

// RunOne evaluates a single input without expected output; used by the manual
// test dashboard.
func (s *Session) RunOne(ctx context.Context, input string) Result {
	return s.runItem(ctx, Item{Input: input})
}

func (s *Session) runItem(ctx context.Context, item Item) (result Result) {
	start := s.now()
	result = Result{
		Input:          item.Input,
		ExpectedOutput: item.ExpectedOutput,
		Success:        true,
		Errors:         []string{},
	}
	defer func() {
		result.ExecutionTime = s.now().Sub(start)
		if r := recover(); r != nil {
			result.Success = false
			result.ActualOutput = nil
			result.Metrics = map[string]float64{}
			result.AggregateScore = 0
			result.Errors = append(result.Errors, fmt.Sprintf("item processing failed: %v", r))
		}
	}()

	state := s.executor.Execute(ctx, item.Input)
	result.Errors = append(result.Errors, state.Errors...)

	actual := state.Output
	if actual == nil {
		actual = deepCopyMap(s.emptyDefault)
	}
	result.ActualOutput = actual
	result.Metrics = s.metrics.Evaluate(item.Input, actual, item.ExpectedOutput)
	result.AggregateScore = metric.Aggregate(result.Metrics)
	return result
}

func (s *Session) emit(ctx context.Context, event types.Event) {
	_ = s.sink.Emit(ctx, event)
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
