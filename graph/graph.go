// Package graph compiles declarative step graphs and executes them against a
// model backend, finishing every run with a schema validation step.
package graph

import (
	"fmt"

	"github.com/abhesrivas/industriage/observe"
	"github.com/abhesrivas/industriage/schema"
)

// Graph is a compiled, immutable execution plan: a linear chain of named
// steps ending at the implicit validation node. Compile rejects anything
// that cannot be flattened into such a chain.
type Graph struct {
	name      string
	order     []string
	steps     map[string]StepSpec
	invoker   Invoker
	validator *schema.Validator
	sink      observe.Sink
	newRunID  func() string
}

// Option customizes a compiled graph.
type Option func(*Graph)

// WithSink attaches an event sink; execution emits step and run events to it.
func WithSink(sink observe.Sink) Option {
	return func(g *Graph) {
		if sink != nil {
			g.sink = sink
		}
	}
}

// WithRunIDFunc overrides run identifier generation. Used in tests to get
// deterministic identifiers.
func WithRunIDFunc(fn func() string) Option {
	return func(g *Graph) {
		if fn != nil {
			g.newRunID = fn
		}
	}
}

// Compile checks the declared spec and produces an executable graph. All
// structural problems (unknown steps, cycles, unreachable nodes, missing or
// ambiguous entry) surface here as *ConfigError; Execute performs no
// structural checks of its own.
func Compile(name string, spec Spec, steps map[string]StepSpec, invoker Invoker, validator *schema.Validator, opts ...Option) (*Graph, error) {
	if invoker == nil {
		return nil, configErrorf("workflow %q: nil invoker", name)
	}
	if validator == nil {
		return nil, configErrorf("workflow %q: nil output validator", name)
	}

	declared := make(map[string]bool, len(spec.Agents))
	for _, agent := range spec.Agents {
		if agent == StartToken || agent == EndToken || agent == ValidateStepName {
			return nil, configErrorf("workflow %q: step name %q is reserved", name, agent)
		}
		if declared[agent] {
			return nil, configErrorf("workflow %q: duplicate step %q", name, agent)
		}
		if _, ok := steps[agent]; !ok {
			return nil, configErrorf("workflow %q: step %q has no definition", name, agent)
		}
		declared[agent] = true
	}

	// Edges into END are rerouted through the validation node, so the
	// successor table carries ValidateStepName where END was declared.
	entry := ""
	next := make(map[string]string, len(spec.Edges))
	for _, edge := range spec.Edges {
		from, to := edge[0], edge[1]
		if from == EndToken {
			return nil, configErrorf("workflow %q: edge out of END", name)
		}
		if to == StartToken {
			return nil, configErrorf("workflow %q: edge into START", name)
		}
		if from != StartToken && !declared[from] {
			return nil, configErrorf("workflow %q: edge references undeclared step %q", name, from)
		}
		if to != EndToken && !declared[to] {
			return nil, configErrorf("workflow %q: edge references undeclared step %q", name, to)
		}
		if from == StartToken {
			if entry != "" {
				return nil, configErrorf("workflow %q: multiple START edges", name)
			}
			if to == EndToken {
				return nil, configErrorf("workflow %q: START wired directly to END", name)
			}
			entry = to
			continue
		}
		if to == EndToken {
			to = ValidateStepName
		}
		if prior, ok := next[from]; ok {
			return nil, configErrorf("workflow %q: step %q has multiple outgoing edges (%q and %q)", name, from, prior, to)
		}
		next[from] = to
	}
	if entry == "" {
		return nil, configErrorf("workflow %q: no START edge", name)
	}

	order, err := chainFrom(name, entry, next, declared)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		name:      name,
		order:     order,
		steps:     steps,
		invoker:   invoker,
		validator: validator,
		sink:      observe.NoopSink{},
		newRunID:  defaultRunID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// chainFrom walks successors from the entry step, rejecting cycles and any
// declared step the walk never reaches.
func chainFrom(name, entry string, next map[string]string, declared map[string]bool) ([]string, error) {
	order := make([]string, 0, len(declared)+1)
	seen := make(map[string]bool, len(declared))
	current := entry
	for current != ValidateStepName {
		if seen[current] {
			return nil, configErrorf("workflow %q: cycle detected at step %q", name, current)
		}
		seen[current] = true
		order = append(order, current)
		to, ok := next[current]
		if !ok {
			return nil, configErrorf("workflow %q: step %q has no outgoing edge", name, current)
		}
		current = to
	}
	for agent := range declared {
		if !seen[agent] {
			return nil, configErrorf("workflow %q: step %q is unreachable from START", name, agent)
		}
	}
	return append(order, ValidateStepName), nil
}

// Name returns the workflow name the graph was compiled for.
func (g *Graph) Name() string { return g.name }

// StepOrder returns the execution order, ending with the validation node.
func (g *Graph) StepOrder() []string {
	return append([]string(nil), g.order...)
}

// Mermaid renders the compiled chain as a flowchart for run artifacts.
func (g *Graph) Mermaid() string {
	out := "graph TD\n"
	prev := StartToken
	for _, step := range g.order {
		out += fmt.Sprintf("    %s --> %s\n", prev, step)
		prev = step
	}
	out += fmt.Sprintf("    %s --> %s\n", prev, EndToken)
	return out
}
