// Package schema validates candidate structured outputs against a declarative
// JSON Schema document. It is used both as a binary metric and as the trailing
// validation node of every workflow graph.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError carries every violated constraint so callers can report
// them verbatim rather than just the first failure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}

type Validator struct {
	doc      map[string]any
	compiled *gojsonschema.Schema
}

// Compile builds a reusable validator from a JSON Schema document. The
// document is compiled once; Validate may be called from many runs.
func Compile(doc map[string]any) (*Validator, error) {
	if len(doc) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{doc: doc, compiled: compiled}, nil
}

func FromFile(path string) (*Validator, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %q: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema file %q: %w", path, err)
	}
	return Compile(doc)
}

// Document returns the raw schema, e.g. for passing to providers that support
// constrained generation.
func (v *Validator) Document() map[string]any {
	if v == nil {
		return nil
	}
	return v.doc
}

// Validate checks candidate against the schema and returns it unchanged on
// success. On failure it returns a *ValidationError listing each violation as
// "field: description".
func (v *Validator) Validate(candidate map[string]any) (map[string]any, error) {
	if v == nil || v.compiled == nil {
		return nil, fmt.Errorf("validator is not initialized")
	}
	if candidate == nil {
		return nil, &ValidationError{Violations: []string{"(root): candidate is null"}}
	}
	result, err := v.compiled.Validate(gojsonschema.NewGoLoader(candidate))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return candidate, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return nil, &ValidationError{Violations: violations}
}
