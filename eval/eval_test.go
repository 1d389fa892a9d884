package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/metric"
	"github.com/abhesrivas/industriage/observe"
	"github.com/abhesrivas/industriage/schema"
	"github.com/abhesrivas/industriage/types"
)

func triageValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.Compile(map[string]any{
		"type":     "object",
		"required": []any{"work_requests", "work_orders", "tasks"},
		"properties": map[string]any{
			"work_requests": map[string]any{"type": "array"},
			"work_orders":   map[string]any{"type": "array"},
			"tasks":         map[string]any{"type": "array"},
		},
	})
	if err != nil {
		t.Fatalf("Compile schema: %v", err)
	}
	return v
}

func emptyTriageDefault() map[string]any {
	return map[string]any{"work_requests": []any{}, "work_orders": []any{}, "tasks": []any{}}
}

func compileGraph(t *testing.T, invoker graph.Invoker) *graph.Graph {
	t.Helper()
	spec := graph.Spec{
		Agents: []string{"extract"},
		Edges:  [][2]string{{graph.StartToken, "extract"}, {"extract", graph.EndToken}},
	}
	steps := map[string]graph.StepSpec{"extract": {Name: "extract", Instructions: "extract work items"}}
	g, err := graph.Compile("triage", spec, steps, invoker, triageValidator(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g
}

func TestRunScoresEachItem(t *testing.T) {
	t.Parallel()

	output := map[string]any{
		"work_requests": []any{},
		"work_orders":   []any{map[string]any{"title": "Fix tunnel", "description": "leak", "status": "open", "asset_id": "tunnel-001"}},
		"tasks":         []any{},
	}
	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		return output, nil
	})
	session, err := NewSession(compileGraph(t, invoker), metric.StandardSet(triageValidator(t)),
		WithEmptyDefault(emptyTriageDefault()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	items := []Item{{
		Input:          "tunnel 1 is leaking",
		ExpectedOutput: map[string]any{"work_orders": []any{map[string]any{"title": "Fix tunnel"}}},
	}}
	results, err := session.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	result := results[0]
	if !result.Success {
		t.Fatalf("Success = false, errors: %v", result.Errors)
	}
	if diff := cmp.Diff(output, result.ActualOutput); diff != "" {
		t.Fatalf("actual output mismatch (-want +got):\n%s", diff)
	}
	for name, want := range map[string]float64{
		"schema_validity":                  1.0,
		"category_classification_accuracy": 1.0,
		"asset_identification_accuracy":    1.0,
		"completeness_score":               1.0,
	} {
		if got := result.Metrics[name]; got != want {
			t.Fatalf("metric %s = %v, want %v", name, got, want)
		}
	}
	if result.ExecutionTime < 0 {
		t.Fatalf("negative execution time %v", result.ExecutionTime)
	}
}

func TestRunFailingStepStillSucceedsWithEmptyDefault(t *testing.T) {
	t.Parallel()

	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		return nil, errors.New("backend unreachable")
	})
	session, err := NewSession(compileGraph(t, invoker), metric.StandardSet(triageValidator(t)),
		WithEmptyDefault(emptyTriageDefault()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	results, err := session.Run(context.Background(), []Item{{Input: "dryer 12 is down"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := results[0]

	// Processing itself completed, so the item is successful even though
	// every step failed.
	if !result.Success {
		t.Fatal("Success = false, want true")
	}
	if diff := cmp.Diff(emptyTriageDefault(), result.ActualOutput); diff != "" {
		t.Fatalf("actual output is not the empty default (-want +got):\n%s", diff)
	}
	if len(result.Errors) == 0 {
		t.Fatal("step errors were not preserved")
	}
	if result.Errors[0] != "Error in extract: backend unreachable" {
		t.Fatalf("first error = %q", result.Errors[0])
	}
	// The empty default itself satisfies the schema.
	if got := result.Metrics["schema_validity"]; got != 1.0 {
		t.Fatalf("schema_validity = %v, want 1.0", got)
	}
}

type panickyExecutor struct{}

func (panickyExecutor) Execute(context.Context, string) graph.RunState {
	panic("executor blew up")
}

func TestRunContainsItemPanics(t *testing.T) {
	t.Parallel()

	session, err := NewSession(panickyExecutor{}, metric.NewSet(),
		WithEmptyDefault(emptyTriageDefault()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	results, err := session.Run(context.Background(), []Item{{Input: "a"}, {Input: "b"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (run must continue past a failing item)", len(results))
	}
	for i, result := range results {
		if result.Success {
			t.Fatalf("result %d Success = true, want false", i)
		}
		if len(result.Errors) == 0 {
			t.Fatalf("result %d has no error recorded", i)
		}
		if len(result.Metrics) != 0 {
			t.Fatalf("result %d Metrics = %v, want empty", i, result.Metrics)
		}
	}
}

func TestRunStopsBetweenItemsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		calls++
		cancel()
		return emptyTriageDefault(), nil
	})
	session, err := NewSession(compileGraph(t, invoker), metric.StandardSet(triageValidator(t)),
		WithEmptyDefault(emptyTriageDefault()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	results, err := session.Run(ctx, []Item{{Input: "a"}, {Input: "b"}, {Input: "c"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	// The first item completes; cancellation is honored before the second.
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if calls != 1 {
		t.Fatalf("invoker called %d times, want 1", calls)
	}
}

func TestRunEmptyDefaultIsCopiedPerItem(t *testing.T) {
	t.Parallel()

	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		return nil, errors.New("always fails")
	})
	session, err := NewSession(compileGraph(t, invoker), metric.NewSet(),
		WithEmptyDefault(emptyTriageDefault()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	results, err := session.Run(context.Background(), []Item{{Input: "a"}, {Input: "b"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	results[0].ActualOutput["work_requests"] = "mutated"
	if diff := cmp.Diff(emptyTriageDefault(), results[1].ActualOutput); diff != "" {
		t.Fatalf("second item shares the first item's default (-want +got):\n%s", diff)
	}
}

func TestRunEmitsItemEvents(t *testing.T) {
	t.Parallel()

	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		return emptyTriageDefault(), nil
	})
	collector := observe.NewCollectorSink()
	session, err := NewSession(compileGraph(t, invoker), metric.NewSet(),
		WithEmptyDefault(emptyTriageDefault()),
		WithWorkflowName("triage"),
		WithSink(collector))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := session.Run(context.Background(), []Item{{Input: "a"}, {Input: "b"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	counts := map[types.EventType]int{}
	for _, event := range collector.Events() {
		counts[event.Type]++
		if event.Workflow != "triage" {
			t.Fatalf("event workflow = %q", event.Workflow)
		}
	}
	if counts[types.EventItemStarted] != 2 || counts[types.EventItemCompleted] != 2 {
		t.Fatalf("event counts = %v", counts)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Success: true, AggregateScore: 1.0, Metrics: map[string]float64{"a": 1.0, "b": 1.0}},
		{Success: false, AggregateScore: 0.5, Metrics: map[string]float64{"a": 0.5}},
	}
	summary := Summarize(results)
	if summary.Items != 2 || summary.Succeeded != 1 {
		t.Fatalf("Items=%d Succeeded=%d", summary.Items, summary.Succeeded)
	}
	if summary.AverageScore != 0.75 {
		t.Fatalf("AverageScore = %v", summary.AverageScore)
	}
	// Mean of b is over the one item carrying it, not both.
	if summary.MetricMeans["b"] != 1.0 {
		t.Fatalf("mean of b = %v, want 1.0", summary.MetricMeans["b"])
	}
	if summary.MetricMeans["a"] != 0.75 {
		t.Fatalf("mean of a = %v, want 0.75", summary.MetricMeans["a"])
	}
	if diff := cmp.Diff([]string{"a", "b"}, summary.MetricNames()); diff != "" {
		t.Fatalf("metric names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDatasetJSONArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dataset.json")
	content := `[
	{"input": "tunnel 1 is down", "expected_output": {"work_orders": [{"title": "Fix"}]}},
	{"input": "restock shelf"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	items, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Input != "tunnel 1 is down" || items[0].ExpectedOutput == nil {
		t.Fatalf("item 0 = %+v", items[0])
	}
	if items[1].ExpectedOutput != nil {
		t.Fatalf("item 1 expected output = %v, want nil", items[1].ExpectedOutput)
	}
}

func TestLoadDatasetJSONL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dataset.jsonl")
	content := `{"input": "one"}

{"input": "two", "expected_output": {"tasks": []}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	items, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[1].Input != "two" {
		t.Fatalf("item 1 input = %q", items[1].Input)
	}
}

func TestLoadDatasetRejectsBadInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadDataset(empty); err == nil {
		t.Fatal("empty dataset accepted")
	}

	blank := filepath.Join(dir, "blank.json")
	if err := os.WriteFile(blank, []byte(`[{"input": "  "}]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadDataset(blank); err == nil {
		t.Fatal("blank input accepted")
	}

	if _, err := LoadDataset(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("missing file accepted")
	}
}
