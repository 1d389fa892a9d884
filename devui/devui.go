// Package devui serves the manual-test dashboard: paste a transcription, run
// it through a workflow, inspect and tweak step prompts, browse recent tests.
//
// The dashboard is an explicitly constructed Session handed to the HTTP
// server; nothing here is process-global.
package devui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abhesrivas/industriage/backend"
	"github.com/abhesrivas/industriage/eval"
	"github.com/abhesrivas/industriage/llm"
	"github.com/abhesrivas/industriage/workflow"
)

const historyLimit = 20

// TestRecord is one manual test kept in session history.
type TestRecord struct {
	Workflow  string      `json:"workflow"`
	Input     string      `json:"input"`
	Result    eval.Result `json:"result"`
	Timestamp time.Time   `json:"timestamp"`
}

// Session holds the mutable manual-testing state: workflow definitions with
// editable prompts and a bounded test history.
type Session struct {
	mu       sync.Mutex
	registry *workflow.Registry
	provider llm.Provider
	history  []TestRecord
	now      func() time.Time
}

func NewSession(registry *workflow.Registry, provider llm.Provider) (*Session, error) {
	if registry == nil {
		return nil, fmt.Errorf("devui: nil workflow registry")
	}
	if provider == nil {
		return nil, fmt.Errorf("devui: nil provider")
	}
	return &Session{
		registry: registry,
		provider: provider,
		now:      time.Now,
	}, nil
}

// Workflows lists the names available for testing.
func (s *Session) Workflows() []string {
	return s.registry.Names()
}

// Test runs one input through the named workflow and records the result in
// session history.
func (s *Session) Test(ctx context.Context, workflowName, input string) (eval.Result, error) {
	def, ok := s.registry.Get(workflowName)
	if !ok {
		return eval.Result{}, fmt.Errorf("unknown workflow %q", workflowName)
	}

	runner, err := backend.New(s.provider,
		backend.WithModel(def.Config.Backend.Model),
		backend.WithResponseSchema(def.Schema.Document()),
		backend.WithRetryAttempts(def.Config.Backend.RetryAttempts),
		backend.WithCallTimeout(def.Config.Backend.Timeout()),
	)
	if err != nil {
		return eval.Result{}, err
	}
	compiled, err := def.Compile(runner)
	if err != nil {
		return eval.Result{}, err
	}
	metrics, err := def.MetricSet()
	if err != nil {
		return eval.Result{}, err
	}
	session, err := eval.NewSession(compiled, metrics,
		eval.WithEmptyDefault(def.EmptyDefault()),
		eval.WithWorkflowName(def.Name),
	)
	if err != nil {
		return eval.Result{}, err
	}

	result := session.RunOne(ctx, input)

	s.mu.Lock()
	s.history = append(s.history, TestRecord{
		Workflow:  workflowName,
		Input:     input,
		Result:    result,
		Timestamp: s.now().UTC(),
	})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.mu.Unlock()

	return result, nil
}

// Prompt returns the instructions of one step of a workflow.
func (s *Session) Prompt(workflowName, stepName string) (string, error) {
	def, ok := s.registry.Get(workflowName)
	if !ok {
		return "", fmt.Errorf("unknown workflow %q", workflowName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := def.Steps[stepName]
	if !ok {
		return "", fmt.Errorf("unknown step %q in workflow %q", stepName, workflowName)
	}
	return step.Instructions, nil
}

// Steps lists the step names of a workflow in declaration order.
func (s *Session) Steps(workflowName string) ([]string, error) {
	def, ok := s.registry.Get(workflowName)
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q", workflowName)
	}
	return append([]string(nil), def.Spec.Agents...), nil
}

// UpdatePrompt replaces a step's instructions for subsequent tests in this
// session. The on-disk definition is untouched.
func (s *Session) UpdatePrompt(workflowName, stepName, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	def, ok := s.registry.Get(workflowName)
	if !ok {
		return fmt.Errorf("unknown workflow %q", workflowName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := def.Steps[stepName]
	if !ok {
		return fmt.Errorf("unknown step %q in workflow %q", stepName, workflowName)
	}
	step.Instructions = prompt
	def.Steps[stepName] = step
	return nil
}

// History returns the most recent manual tests, newest last.
func (s *Session) History() []TestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TestRecord(nil), s.history...)
}

// ClearHistory drops all recorded tests.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
