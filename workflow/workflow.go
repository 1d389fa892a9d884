// Package workflow loads declarative workflow definitions from configuration
// directories and tracks them in a registry.
//
// A workflow directory contains:
//
//	graph.json    step names and START/END edges
//	agents/*.json one step definition per file
//	schema.json   the declared output shape
//	config.yaml   backend settings, metric selection, empty default output
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/abhesrivas/industriage/graph"
	"github.com/abhesrivas/industriage/metric"
	"github.com/abhesrivas/industriage/schema"
)

// BackendConfig selects and tunes the model backend for a workflow.
type BackendConfig struct {
	Kind          string  `yaml:"kind"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	RetryAttempts int     `yaml:"retry_attempts"`
	TimeoutSecs   int     `yaml:"timeout_seconds"`
}

// Timeout returns the per-call timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// Config is the per-workflow config.yaml payload.
type Config struct {
	Backend      BackendConfig  `yaml:"backend"`
	Metrics      []string       `yaml:"metrics"`
	EmptyDefault map[string]any `yaml:"empty_default"`
}

// DefaultConfig mirrors the settings a workflow gets when config.yaml is
// absent or partial.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Kind:          "openai",
			Model:         "gpt-4o-mini",
			Temperature:   0.1,
			RetryAttempts: 3,
			TimeoutSecs:   60,
		},
	}
}

// Definition is a fully loaded workflow: graph shape, step definitions,
// output schema, and runtime configuration.
type Definition struct {
	Name   string
	Dir    string
	Spec   graph.Spec
	Steps  map[string]graph.StepSpec
	Schema *schema.Validator
	Config Config
}

// FromDir loads a workflow definition from a configuration directory. The
// workflow is named after the directory.
func FromDir(dir string) (*Definition, error) {
	name := filepath.Base(filepath.Clean(dir))
	def := &Definition{Name: name, Dir: dir, Config: DefaultConfig()}

	if err := readJSONFile(filepath.Join(dir, "graph.json"), &def.Spec); err != nil {
		return nil, fmt.Errorf("workflow %q: %w", name, err)
	}

	steps, err := loadSteps(filepath.Join(dir, "agents"))
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", name, err)
	}
	def.Steps = steps

	validator, err := schema.FromFile(filepath.Join(dir, "schema.json"))
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", name, err)
	}
	def.Schema = validator

	if err := loadConfig(filepath.Join(dir, "config.yaml"), &def.Config); err != nil {
		return nil, fmt.Errorf("workflow %q: %w", name, err)
	}
	return def, nil
}

// Compile turns the definition into an executable graph using the given
// invoker. Structural problems in graph.json surface here.
func (d *Definition) Compile(invoker graph.Invoker, opts ...graph.Option) (*graph.Graph, error) {
	return graph.Compile(d.Name, d.Spec, d.Steps, invoker, d.Schema, opts...)
}

// MetricSet builds the metric set named in config.yaml; with no metrics
// configured, every standard metric is used.
func (d *Definition) MetricSet() (*metric.Set, error) {
	if len(d.Config.Metrics) == 0 {
		return metric.StandardSet(d.Schema), nil
	}
	registry := metric.NewRegistry()
	if err := metric.RegisterStandard(registry, d.Schema); err != nil {
		return nil, err
	}
	metrics, err := registry.Resolve(d.Config.Metrics)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", d.Name, err)
	}
	return metric.NewSet(metrics...), nil
}

// EmptyDefault returns the configured fallback output for runs that produce
// nothing.
func (d *Definition) EmptyDefault() map[string]any {
	return d.Config.EmptyDefault
}

func loadSteps(dir string) (map[string]graph.StepSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents dir: %w", err)
	}
	steps := map[string]graph.StepSpec{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var step graph.StepSpec
		if err := readJSONFile(filepath.Join(dir, entry.Name()), &step); err != nil {
			return nil, err
		}
		if step.Name == "" {
			step.Name = strings.TrimSuffix(entry.Name(), ".json")
		}
		if step.Instructions == "" {
			return nil, fmt.Errorf("step %q has no instructions", step.Name)
		}
		if _, ok := steps[step.Name]; ok {
			return nil, fmt.Errorf("duplicate step definition %q", step.Name)
		}
		steps[step.Name] = step
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no step definitions in %s", dir)
	}
	return steps, nil
}

func loadConfig(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = DefaultConfig().Backend.Kind
	}
	if cfg.Backend.RetryAttempts <= 0 {
		cfg.Backend.RetryAttempts = DefaultConfig().Backend.RetryAttempts
	}
	if cfg.Backend.TimeoutSecs <= 0 {
		cfg.Backend.TimeoutSecs = DefaultConfig().Backend.TimeoutSecs
	}
	return nil
}

func readJSONFile(path string, out any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Registry tracks loaded workflow definitions by name.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{definitions: map[string]*Definition{}}
}

func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("workflow: invalid definition")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[def.Name]; ok {
		return fmt.Errorf("workflow %q already registered", def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadRoot loads every subdirectory of root that carries a graph.json and
// registers it.
func LoadRoot(root string) (*Registry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow root %q: %w", root, err)
	}
	registry := NewRegistry()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "graph.json")); err != nil {
			continue
		}
		def, err := FromDir(dir)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(def); err != nil {
			return nil, err
		}
	}
	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no workflows found under %q", root)
	}
	return registry, nil
}
