package graph

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/abhesrivas/industriage/schema"
	"github.com/abhesrivas/industriage/types"
)

// Invoker executes a single prompted step against a model backend. The prior
// map is the output of the preceding step, or nil for the entry step.
type Invoker interface {
	Invoke(ctx context.Context, step StepSpec, input string, prior map[string]any) (map[string]any, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, step StepSpec, input string, prior map[string]any) (map[string]any, error)

func (f InvokerFunc) Invoke(ctx context.Context, step StepSpec, input string, prior map[string]any) (map[string]any, error) {
	return f(ctx, step, input, prior)
}

func defaultRunID() string { return uuid.NewString() }

// Execute runs every compiled step in order against the input and returns the
// final state. Step failures are recorded and execution continues with the
// remaining steps; Execute itself never fails. The returned state always
// carries one StepResults entry per step, including the validation node.
func (g *Graph) Execute(ctx context.Context, input string) RunState {
	now := time.Now().UTC()
	state := newRunState(g.newRunID(), input, now)

	g.emit(ctx, types.Event{
		Type:      types.EventRunStarted,
		Timestamp: now,
		RunID:     state.RunID,
		Workflow:  g.name,
	})

	for _, name := range g.order {
		if name == ValidateStepName {
			state = g.runValidation(ctx, state)
			continue
		}
		state = g.runStep(ctx, state, g.steps[name])
	}

	g.emit(ctx, types.Event{
		Type:      types.EventRunCompleted,
		Timestamp: time.Now().UTC(),
		RunID:     state.RunID,
		Workflow:  g.name,
	})
	return state
}

func (g *Graph) runStep(ctx context.Context, state RunState, step StepSpec) RunState {
	g.emit(ctx, types.Event{
		Type:      types.EventStepStarted,
		Timestamp: time.Now().UTC(),
		RunID:     state.RunID,
		Workflow:  g.name,
		StepName:  step.Name,
	})

	output, err := g.invoker.Invoke(ctx, step, state.Input, state.Output)

	next := state.clone()
	next.UpdatedAt = time.Now().UTC()
	if err != nil {
		next.StepResults.Set(step.Name, map[string]any{"error": err.Error()})
		next.Errors = append(next.Errors, "Error in "+step.Name+": "+err.Error())
		next.Output = nil
		g.emit(ctx, types.Event{
			Type:      types.EventStepFailed,
			Timestamp: next.UpdatedAt,
			RunID:     next.RunID,
			Workflow:  g.name,
			StepName:  step.Name,
			Error:     err.Error(),
		})
		return next
	}

	next.StepResults.Set(step.Name, output)
	next.Output = output
	g.emit(ctx, types.Event{
		Type:      types.EventStepCompleted,
		Timestamp: next.UpdatedAt,
		RunID:     next.RunID,
		Workflow:  g.name,
		StepName:  step.Name,
	})
	return next
}

// runValidation checks the final output against the workflow schema and
// records the verdict as the last step result.
func (g *Graph) runValidation(ctx context.Context, state RunState) RunState {
	g.emit(ctx, types.Event{
		Type:      types.EventStepStarted,
		Timestamp: time.Now().UTC(),
		RunID:     state.RunID,
		Workflow:  g.name,
		StepName:  ValidateStepName,
	})

	next := state.clone()
	next.UpdatedAt = time.Now().UTC()

	if state.Output == nil {
		const msg = "No output data to validate"
		next.StepResults.Set(ValidateStepName, map[string]any{"valid": false, "error": msg})
		next.Errors = append(next.Errors, "Validation error: "+msg)
		g.emit(ctx, types.Event{
			Type:      types.EventStepFailed,
			Timestamp: next.UpdatedAt,
			RunID:     next.RunID,
			Workflow:  g.name,
			StepName:  ValidateStepName,
			Error:     msg,
		})
		return next
	}

	validated, err := g.validator.Validate(state.Output)
	if err != nil {
		msg := err.Error()
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			msg = verr.Error()
		}
		next.StepResults.Set(ValidateStepName, map[string]any{"valid": false, "error": msg})
		next.Errors = append(next.Errors, "Validation error: "+msg)
		g.emit(ctx, types.Event{
			Type:      types.EventStepFailed,
			Timestamp: next.UpdatedAt,
			RunID:     next.RunID,
			Workflow:  g.name,
			StepName:  ValidateStepName,
			Error:     msg,
		})
		return next
	}

	next.StepResults.Set(ValidateStepName, map[string]any{"valid": true, "validated_data": validated})
	g.emit(ctx, types.Event{
		Type:      types.EventStepCompleted,
		Timestamp: next.UpdatedAt,
		RunID:     next.RunID,
		Workflow:  g.name,
		StepName:  ValidateStepName,
	})
	return next
}

func (g *Graph) emit(ctx context.Context, event types.Event) {
	if g.sink == nil {
		return
	}
	_ = g.sink.Emit(ctx, event)
}
