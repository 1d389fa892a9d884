package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgs(t *testing.T) {
	opts, positional := parseArgs([]string{
		"--workflow=triage",
		"--dataset=./data/eval.json",
		"--limit=5",
		"extra",
	})
	if opts.workflow != "triage" {
		t.Fatalf("workflow = %q", opts.workflow)
	}
	if opts.dataset != "./data/eval.json" {
		t.Fatalf("dataset = %q", opts.dataset)
	}
	if opts.limit != 5 {
		t.Fatalf("limit = %d", opts.limit)
	}
	if len(positional) != 1 || positional[0] != "extra" {
		t.Fatalf("positional = %v", positional)
	}
}

func TestParseArgsIgnoresMalformedLimit(t *testing.T) {
	opts, _ := parseArgs([]string{"--limit=lots"})
	if opts.limit != 0 {
		t.Fatalf("limit = %d", opts.limit)
	}
}

func writeWorkflowFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "triage")
	files := map[string]string{
		"graph.json": `{
	"agents": ["extract"],
	"edges": [["START", "extract"], ["extract", "END"]]
}`,
		filepath.Join("agents", "extract.json"): `{
	"name": "extract",
	"instructions": "Extract work items."
}`,
		"schema.json": `{
	"type": "object",
	"required": ["work_requests", "work_orders", "tasks"],
	"properties": {
		"work_requests": {"type": "array"},
		"work_orders": {"type": "array"},
		"tasks": {"type": "array"}
	}
}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return root
}

func TestValidateWorkflow(t *testing.T) {
	root := writeWorkflowFixture(t)
	if err := validateWorkflow([]string{"--workflow=triage", "--workflows=" + root}); err != nil {
		t.Fatalf("validateWorkflow: %v", err)
	}
}

func TestValidateWorkflowUnknown(t *testing.T) {
	root := writeWorkflowFixture(t)
	if err := validateWorkflow([]string{"--workflow=ghost", "--workflows=" + root}); err == nil {
		t.Fatal("validateWorkflow accepted missing workflow")
	}
}

func TestListWorkflows(t *testing.T) {
	root := writeWorkflowFixture(t)
	if err := listWorkflows([]string{"--workflows=" + root}); err != nil {
		t.Fatalf("listWorkflows: %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := Run(context.Background(), []string{"frobnicate"}); err == nil {
		t.Fatal("Run accepted unknown command")
	}
}

func TestRunRequiresFlags(t *testing.T) {
	if err := runEval(context.Background(), nil); err == nil {
		t.Fatal("runEval accepted missing workflow")
	}
	if err := runEval(context.Background(), []string{"--workflow=triage"}); err == nil {
		t.Fatal("runEval accepted missing dataset")
	}
}
