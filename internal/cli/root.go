// Package cli implements the industriage command line: evaluation runs,
// workflow inspection, persisted-run browsing, and the manual test dashboard.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhesrivas/industriage/internal/config"
)

// Run dispatches a command invocation. Args excludes the program name.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	switch strings.TrimSpace(args[0]) {
	case "run":
		return runEval(ctx, args[1:])
	case "workflows":
		return listWorkflows(args[1:])
	case "validate":
		return validateWorkflow(args[1:])
	case "results":
		return showResults(ctx, args[1:])
	case "serve":
		return serve(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// workflowRoot resolves the workflow configuration root: flag first, then
// environment, then the conventional ./workflows directory.
func workflowRoot(opts cliOptions) string {
	if opts.root != "" {
		return opts.root
	}
	return config.Getenv("INDUSTRIAGE_WORKFLOWS_DIR", "./workflows")
}
