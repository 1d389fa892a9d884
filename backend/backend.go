// Package backend turns an llm.Provider into a graph step invoker: it renders
// the step prompt, applies per-call timeouts and retries, and parses the
// model's text completion into structured output.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/llm"
	"github.com/abhesrivas/industriage/types"
)

const (
	defaultRetryAttempts = 3
	defaultCallTimeout   = 60 * time.Second
	defaultRetryBackoff  = 500 * time.Millisecond
)

// Runner executes graph steps against a model provider. It implements
// graph.Invoker.
type Runner struct {
	provider llm.Provider
	model    string
	schema   map[string]any
	attempts int
	timeout  time.Duration
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Runner)

// WithModel sets the default model for steps that do not name their own.
func WithModel(model string) Option {
	return func(r *Runner) { r.model = model }
}

// WithResponseSchema forwards a JSON Schema to providers that support
// constrained generation.
func WithResponseSchema(doc map[string]any) Option {
	return func(r *Runner) { r.schema = doc }
}

// WithRetryAttempts sets the total number of provider calls per step.
func WithRetryAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithCallTimeout bounds each individual provider call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetryBackoff sets the base delay between attempts. The delay grows
// linearly with the attempt number.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

func New(provider llm.Provider, opts ...Option) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("backend: nil provider")
	}
	r := &Runner{
		provider: provider,
		attempts: defaultRetryAttempts,
		timeout:  defaultCallTimeout,
		backoff:  defaultRetryBackoff,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Invoke runs one prompted step. The previous step's output, when present, is
// appended to the user message as context so each step sees its predecessor's
// work alongside the original input.
func (r *Runner) Invoke(ctx context.Context, step graph.StepSpec, input string, prior map[string]any) (map[string]any, error) {
	req := types.Request{
		Model:           r.model,
		SystemPrompt:    step.Instructions,
		Messages:        []types.Message{{Role: types.RoleUser, Content: r.userMessage(input, prior)}},
		Temperature:     step.Temperature,
		MaxOutputTokens: step.MaxTokens,
		ResponseSchema:  r.schema,
	}
	if step.Model != "" {
		req.Model = step.Model
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, time.Duration(attempt-1)*r.backoff); err != nil {
				return nil, err
			}
		}
		output, err := r.invokeOnce(ctx, req)
		if err == nil {
			return output, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("step %s failed after %d attempts: %w", step.Name, r.attempts, lastErr)
}

func (r *Runner) invokeOnce(ctx context.Context, req types.Request) (map[string]any, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.provider.Generate(callCtx, req)
	if err != nil {
		return nil, err
	}
	return ParseObject(resp.Message.Content)
}

func (r *Runner) userMessage(input string, prior map[string]any) string {
	if len(prior) == 0 {
		return input
	}
	encoded, err := json.Marshal(prior)
	if err != nil {
		return input
	}
	return input + "\n\nPrevious step output:\n" + string(encoded)
}

// ParseObject extracts a JSON object from a model completion. Models often
// wrap output in markdown fences or surround it with prose, so the parser
// strips fences and falls back to the outermost braces.
func ParseObject(content string) (map[string]any, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, fmt.Errorf("empty completion")
	}
	text = stripFence(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("completion contains no JSON object")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse completion as JSON: %w", err)
	}
	return out, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
