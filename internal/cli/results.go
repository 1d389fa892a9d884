package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhesrivas/industriage/state"
	statefactory "github.com/abhesrivas/industriage/state/factory"
)

// showResults lists persisted runs, or the per-item results of one run when
// --run is given.
func showResults(ctx context.Context, args []string) error {
	opts, _ := parseArgs(args)

	store, err := statefactory.FromEnv()
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.runID != "" {
		return showRunItems(ctx, store, opts.runID)
	}

	limit := opts.limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := store.ListRuns(ctx, state.ListRunsQuery{Workflow: opts.workflow, Limit: limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no persisted runs")
		return nil
	}

	fmt.Printf("%-36s  %-12s  %-10s  %5s  %5s  %7s  %s\n",
		"RUN", "WORKFLOW", "STATUS", "ITEMS", "OK", "SCORE", "UPDATED")
	for _, run := range runs {
		updated := ""
		if run.UpdatedAt != nil {
			updated = run.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-36s  %-12s  %-10s  %5d  %5d  %7.3f  %s\n",
			run.RunID, run.Workflow, run.Status, run.Items, run.Succeeded, run.AverageScore, updated)
	}
	return nil
}

func showRunItems(ctx context.Context, store state.Store, runID string) error {
	run, err := store.LoadRun(ctx, runID)
	if err != nil {
		return err
	}
	items, err := store.ListItems(ctx, runID, 0)
	if err != nil {
		return err
	}

	fmt.Printf("run %s  workflow %s  status %s  average %.3f\n\n",
		run.RunID, run.Workflow, run.Status, run.AverageScore)
	for _, item := range items {
		status := "ok"
		if !item.Success {
			status = "FAILED"
		}
		fmt.Printf("[%d] %-6s score %.3f  %.2fs  %s\n",
			item.Seq, status, item.AggregateScore, item.ExecutionTime.Seconds(), truncateInput(item.Input))
		if len(item.Errors) > 0 {
			fmt.Printf("     errors: %s\n", strings.Join(item.Errors, "; "))
		}
	}
	return nil
}

func truncateInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if len(input) > 60 {
		return input[:57] + "..."
	}
	return input
}
