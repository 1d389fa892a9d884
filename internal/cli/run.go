package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/abhesrivas/industriage/backend"
	"github.com/abhesrivas/industriage/eval"
	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/internal/config"
	"github.com/abhesrivas/industriage/observe"
	otelsink "github.com/abhesrivas/industriage/observe/otel"
	providerfactory "github.com/abhesrivas/industriage/providers/factory"
	"github.com/abhesrivas/industriage/report"
	"github.com/abhesrivas/industriage/state"
	statefactory "github.com/abhesrivas/industriage/state/factory"
	"github.com/abhesrivas/industriage/types"
	"github.com/abhesrivas/industriage/workflow"
)

// runEval executes one dataset evaluation end to end: load the workflow,
// build the backend, run every item in order, write the report artifacts,
// and persist the run.
func runEval(ctx context.Context, args []string) error {
	opts, _ := parseArgs(args)
	if opts.workflow == "" {
		return fmt.Errorf("run: --workflow is required")
	}
	if opts.dataset == "" {
		return fmt.Errorf("run: --dataset is required")
	}

	def, err := workflow.FromDir(filepath.Join(workflowRoot(opts), opts.workflow))
	if err != nil {
		return err
	}
	if opts.model != "" {
		def.Config.Backend.Model = opts.model
	}
	if opts.backend != "" {
		def.Config.Backend.Kind = opts.backend
	}

	kind, err := providerfactory.ParseKind(def.Config.Backend.Kind)
	if err != nil {
		return err
	}
	provider, err := providerfactory.New(kind, providerfactory.Config{Model: def.Config.Backend.Model})
	if err != nil {
		return err
	}
	runner, err := backend.New(provider,
		backend.WithModel(def.Config.Backend.Model),
		backend.WithResponseSchema(def.Schema.Document()),
		backend.WithRetryAttempts(def.Config.Backend.RetryAttempts),
		backend.WithCallTimeout(def.Config.Backend.Timeout()),
	)
	if err != nil {
		return err
	}

	items, err := eval.LoadDataset(opts.dataset)
	if err != nil {
		return err
	}

	sink := progressSink(len(items))
	// Tracing piggybacks on whatever TracerProvider the process registered.
	if config.GetenvBool("INDUSTRIAGE_TRACING", false) {
		sink = observe.NewMultiSink(sink, otelsink.NewSink(otel.GetTracerProvider()))
	}
	compiled, err := def.Compile(runner, graph.WithSink(sink))
	if err != nil {
		return err
	}
	metrics, err := def.MetricSet()
	if err != nil {
		return err
	}
	session, err := eval.NewSession(compiled, metrics,
		eval.WithEmptyDefault(def.EmptyDefault()),
		eval.WithWorkflowName(def.Name),
		eval.WithSink(sink),
	)
	if err != nil {
		return err
	}

	store := openStore()
	if store != nil {
		defer store.Close()
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	fmt.Printf("Evaluating workflow %q: %d items, backend %s model %s\n",
		def.Name, len(items), def.Config.Backend.Kind, def.Config.Backend.Model)
	saveRun(ctx, store, state.RunRecord{
		RunID:    runID,
		Workflow: def.Name,
		Provider: def.Config.Backend.Kind,
		Model:    def.Config.Backend.Model,
		Status:   state.StatusRunning,
		Items:    len(items),
	})

	results, runErr := session.Run(ctx, items)
	summary := eval.Summarize(results)

	// Partial results of a cancelled run are still persisted.
	persistCtx := context.WithoutCancel(ctx)
	for i, result := range results {
		saveItem(persistCtx, store, state.ItemRecord{
			RunID:          runID,
			Seq:            i + 1,
			Input:          result.Input,
			Success:        result.Success,
			AggregateScore: result.AggregateScore,
			Metrics:        result.Metrics,
			Errors:         result.Errors,
			ActualOutput:   result.ActualOutput,
			ExpectedOutput: result.ExpectedOutput,
			ExecutionTime:  result.ExecutionTime,
			CreatedAt:      time.Now().UTC(),
		})
	}
	record := state.RunRecord{
		RunID:        runID,
		Workflow:     def.Name,
		Provider:     def.Config.Backend.Kind,
		Model:        def.Config.Backend.Model,
		Status:       state.StatusCompleted,
		Items:        summary.Items,
		Succeeded:    summary.Succeeded,
		AverageScore: summary.AverageScore,
	}
	if runErr != nil {
		record.Status = state.StatusFailed
		record.Error = runErr.Error()
	}
	saveRun(persistCtx, store, record)

	outputBase := opts.output
	if outputBase == "" {
		outputBase = "./outputs"
	}
	dir, err := report.OutputDir(outputBase, def.Name, def.Config.Backend.Model, started)
	if err != nil {
		return err
	}
	if err := report.WriteAll(dir, def.Name, compiled.Mermaid(), results, started); err != nil {
		return err
	}

	fmt.Printf("\nRun %s finished: %d/%d succeeded, average score %.3f\n",
		runID, summary.Succeeded, summary.Items, summary.AverageScore)
	for _, name := range summary.MetricNames() {
		fmt.Printf("  %-24s %.3f\n", name, summary.MetricMeans[name])
	}
	fmt.Printf("Artifacts written to %s\n", dir)
	return runErr
}

// progressSink prints item progress and step failures as the run advances.
func progressSink(total int) observe.Sink {
	return observe.SinkFunc(func(ctx context.Context, event types.Event) error {
		_ = ctx
		switch event.Type {
		case types.EventItemCompleted:
			fmt.Printf("  [%d/%d] %s\n", event.ItemIndex, total, event.Message)
		case types.EventStepFailed:
			fmt.Printf("  step %s failed: %s\n", event.StepName, event.Error)
		}
		return nil
	})
}

// openStore builds the configured state store. Persistence is best effort:
// a store that cannot be opened downgrades the run to report-only.
func openStore() state.Store {
	store, err := statefactory.FromEnv()
	if err != nil {
		fmt.Printf("warning: state store unavailable, results will not be persisted: %v\n", err)
		return nil
	}
	return store
}

func saveRun(ctx context.Context, store state.Store, run state.RunRecord) {
	if store == nil {
		return
	}
	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Printf("warning: failed to persist run %s: %v\n", run.RunID, err)
	}
}

func saveItem(ctx context.Context, store state.Store, item state.ItemRecord) {
	if store == nil {
		return
	}
	if err := store.SaveItem(ctx, item); err != nil {
		fmt.Printf("warning: failed to persist item %d of run %s: %v\n", item.Seq, item.RunID, err)
	}
}
