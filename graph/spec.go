package graph

import "fmt"

// Sentinel tokens used in declarative edge lists.
const (
	StartToken = "START"
	EndToken   = "END"
)

// ValidateStepName is the implicit terminal node appended to every graph.
const ValidateStepName = "validate_output"

// ConfigError reports a malformed or inconsistent graph declaration. It is
// fatal at compile time; no partial execution happens.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "graph config error: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Spec is the declarative graph shape consumed from graph.json: step names
// plus (from,to) edges using the START/END sentinels.
type Spec struct {
	Agents []string    `json:"agents"`
	Edges  [][2]string `json:"edges"`
}

// StepSpec configures one named graph node. Loaded once at workflow
// construction; immutable thereafter.
type StepSpec struct {
	Name         string  `json:"name"`
	Instructions string  `json:"instructions"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}
