// Package metric scores workflow outputs. Each metric is a pure function of
// (input text, actual output, expected output) returning a score in [0,1];
// a Set runs a named collection of metrics and aggregates their scores.
package metric

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Metric is a stateless scoring policy keyed by a unique name.
type Metric interface {
	Name() string
	Evaluate(input string, actual, expected map[string]any) float64
}

// Registry maps metric names to implementations so workflow configuration can
// select metrics by name.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
}

func NewRegistry() *Registry {
	return &Registry{metrics: map[string]Metric{}}
}

func (r *Registry) Register(m Metric) error {
	if m == nil {
		return fmt.Errorf("metric: nil metric")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[m.Name()]; ok {
		return fmt.Errorf("metric %q already registered", m.Name())
	}
	r.metrics[m.Name()] = m
	return nil
}

func (r *Registry) Get(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[name]
	return m, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the named metrics in the given order, failing on any
// unknown name.
func (r *Registry) Resolve(names []string) ([]Metric, error) {
	metrics := make([]Metric, 0, len(names))
	for _, name := range names {
		m, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", name)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// Set runs a fixed collection of metrics over one item.
type Set struct {
	metrics []Metric
}

func NewSet(metrics ...Metric) *Set {
	return &Set{metrics: metrics}
}

// Evaluate scores one item with every metric in the set. A metric that panics
// or returns a non-finite value scores 0 for this item; one broken metric
// never aborts the rest.
func (s *Set) Evaluate(input string, actual, expected map[string]any) map[string]float64 {
	scores := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		scores[m.Name()] = safeEvaluate(m, input, actual, expected)
	}
	return scores
}

func safeEvaluate(m Metric, input string, actual, expected map[string]any) (score float64) {
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()
	score = m.Evaluate(input, actual, expected)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// Aggregate is the arithmetic mean of the present scores. Metrics absent from
// the map are excluded, not counted as zero. An empty map scores 0.
func Aggregate(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}
