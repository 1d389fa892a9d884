package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/workflow"
)

// listWorkflows prints every workflow under the configuration root with its
// step chain and backend settings.
func listWorkflows(args []string) error {
	opts, _ := parseArgs(args)
	registry, err := workflow.LoadRoot(workflowRoot(opts))
	if err != nil {
		return err
	}

	for _, name := range registry.Names() {
		def, _ := registry.Get(name)
		fmt.Printf("%s\n", name)
		fmt.Printf("  steps:   %s\n", strings.Join(def.Spec.Agents, " -> "))
		fmt.Printf("  backend: %s (%s)\n", def.Config.Backend.Kind, def.Config.Backend.Model)
		if len(def.Config.Metrics) > 0 {
			fmt.Printf("  metrics: %s\n", strings.Join(def.Config.Metrics, ", "))
		}
	}
	return nil
}

// validateWorkflow loads and compiles one workflow without calling a model,
// surfacing configuration and graph-shape errors before a real run.
func validateWorkflow(args []string) error {
	opts, positional := parseArgs(args)
	name := opts.workflow
	if name == "" && len(positional) > 0 {
		name = positional[0]
	}
	if name == "" {
		return fmt.Errorf("validate: --workflow is required")
	}

	def, err := workflow.FromDir(filepath.Join(workflowRoot(opts), name))
	if err != nil {
		return err
	}

	// A stub invoker is enough to exercise compilation.
	stub := graph.InvokerFunc(func(_ context.Context, _ graph.StepSpec, _ string, _ map[string]any) (map[string]any, error) {
		return nil, nil
	})
	compiled, err := def.Compile(stub)
	if err != nil {
		return err
	}
	if _, err := def.MetricSet(); err != nil {
		return err
	}

	fmt.Printf("workflow %q is valid\n", def.Name)
	fmt.Printf("execution order: START -> %s -> END\n", strings.Join(compiled.StepOrder(), " -> "))
	return nil
}
