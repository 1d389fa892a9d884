package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhesrivas/industriage/graph"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeTriageWorkflow(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "triage")
	writeFile(t, filepath.Join(dir, "graph.json"), `{
	"agents": ["extract", "format"],
	"edges": [["START", "extract"], ["extract", "format"], ["format", "END"]]
}`)
	writeFile(t, filepath.Join(dir, "agents", "extract.json"), `{
	"name": "extract",
	"instructions": "Extract work items from the transcription."
}`)
	writeFile(t, filepath.Join(dir, "agents", "format.json"), `{
	"name": "format",
	"instructions": "Format the extracted items as triage output.",
	"temperature": 0.2
}`)
	writeFile(t, filepath.Join(dir, "schema.json"), `{
	"type": "object",
	"required": ["work_requests", "work_orders", "tasks"],
	"properties": {
		"work_requests": {"type": "array"},
		"work_orders": {"type": "array"},
		"tasks": {"type": "array"}
	}
}`)
	writeFile(t, filepath.Join(dir, "config.yaml"), `backend:
  kind: ollama
  model: llama3.1
  temperature: 0.1
  retry_attempts: 2
  timeout_seconds: 30
metrics:
  - schema_validity
  - category_classification_accuracy
empty_default:
  work_requests: []
  work_orders: []
  tasks: []
`)
	return dir
}

func TestFromDir(t *testing.T) {
	t.Parallel()

	dir := writeTriageWorkflow(t, t.TempDir())
	def, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}

	if def.Name != "triage" {
		t.Fatalf("Name = %q", def.Name)
	}
	if def.Config.Backend.Kind != "ollama" || def.Config.Backend.Model != "llama3.1" {
		t.Fatalf("backend config = %+v", def.Config.Backend)
	}
	if def.Config.Backend.RetryAttempts != 2 || def.Config.Backend.TimeoutSecs != 30 {
		t.Fatalf("backend config = %+v", def.Config.Backend)
	}
	if got := def.Steps["format"].Temperature; got != 0.2 {
		t.Fatalf("format temperature = %v", got)
	}
	want := map[string]any{"work_requests": []any{}, "work_orders": []any{}, "tasks": []any{}}
	if diff := cmp.Diff(want, def.EmptyDefault()); diff != "" {
		t.Fatalf("empty default mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinitionCompile(t *testing.T) {
	t.Parallel()

	def, err := FromDir(writeTriageWorkflow(t, t.TempDir()))
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}

	invoker := graph.InvokerFunc(func(context.Context, graph.StepSpec, string, map[string]any) (map[string]any, error) {
		return map[string]any{"work_requests": []any{}, "work_orders": []any{}, "tasks": []any{}}, nil
	})
	g, err := def.Compile(invoker)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	wantOrder := []string{"extract", "format", graph.ValidateStepName}
	if diff := cmp.Diff(wantOrder, g.StepOrder()); diff != "" {
		t.Fatalf("step order mismatch (-want +got):\n%s", diff)
	}

	state := g.Execute(context.Background(), "tunnel 1 down")
	if len(state.Errors) != 0 {
		t.Fatalf("Errors = %v", state.Errors)
	}
}

func TestDefinitionMetricSet(t *testing.T) {
	t.Parallel()

	def, err := FromDir(writeTriageWorkflow(t, t.TempDir()))
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	set, err := def.MetricSet()
	if err != nil {
		t.Fatalf("MetricSet: %v", err)
	}
	scores := set.Evaluate("x", map[string]any{}, map[string]any{"tasks": []any{map[string]any{}}})
	if len(scores) != 2 {
		t.Fatalf("scores = %v, want the two configured metrics", scores)
	}
	if _, ok := scores["schema_validity"]; !ok {
		t.Fatalf("scores = %v, missing schema_validity", scores)
	}
}

func TestFromDirRejectsBrokenDefinitions(t *testing.T) {
	t.Parallel()

	t.Run("missing graph", func(t *testing.T) {
		t.Parallel()
		dir := writeTriageWorkflow(t, t.TempDir())
		if err := os.Remove(filepath.Join(dir, "graph.json")); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if _, err := FromDir(dir); err == nil {
			t.Fatal("FromDir accepted workflow without graph.json")
		}
	})

	t.Run("step without instructions", func(t *testing.T) {
		t.Parallel()
		dir := writeTriageWorkflow(t, t.TempDir())
		writeFile(t, filepath.Join(dir, "agents", "extract.json"), `{"name": "extract"}`)
		if _, err := FromDir(dir); err == nil {
			t.Fatal("FromDir accepted step without instructions")
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		t.Parallel()
		dir := writeTriageWorkflow(t, t.TempDir())
		writeFile(t, filepath.Join(dir, "config.yaml"), "metrics:\n  - bogus_metric\n")
		def, err := FromDir(dir)
		if err != nil {
			t.Fatalf("FromDir: %v", err)
		}
		if _, err := def.MetricSet(); err == nil {
			t.Fatal("MetricSet accepted unknown metric name")
		}
	})
}

func TestLoadRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTriageWorkflow(t, root)
	// A stray non-workflow directory is skipped.
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	registry, err := LoadRoot(root)
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if diff := cmp.Diff([]string{"triage"}, registry.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, ok := registry.Get("triage"); !ok {
		t.Fatal("triage not registered")
	}
	if _, ok := registry.Get("closing"); ok {
		t.Fatal("unexpected workflow registered")
	}
}

func TestLoadRootFailsWithNoWorkflows(t *testing.T) {
	t.Parallel()

	if _, err := LoadRoot(t.TempDir()); err == nil {
		t.Fatal("LoadRoot accepted empty root")
	}
}
