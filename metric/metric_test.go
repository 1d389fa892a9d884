package metric

import (
	"math"
	"testing"

	"github.com/abhesrivas/industriage/schema"
)

func triageValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.Compile(map[string]any{
		"type":     "object",
		"required": []any{"work_requests", "work_orders", "tasks"},
		"properties": map[string]any{
			"work_requests": map[string]any{"type": "array"},
			"work_orders":   map[string]any{"type": "array"},
			"tasks":         map[string]any{"type": "array"},
		},
	})
	if err != nil {
		t.Fatalf("Compile schema: %v", err)
	}
	return v
}

func items(entries ...map[string]any) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestSchemaValidity(t *testing.T) {
	t.Parallel()

	m := NewSchemaValidity(triageValidator(t))
	valid := map[string]any{"work_requests": []any{}, "work_orders": []any{}, "tasks": []any{}}
	approx(t, m.Evaluate("", valid, nil), 1.0)
	approx(t, m.Evaluate("", map[string]any{"work_requests": []any{}}, nil), 0.0)
	approx(t, m.Evaluate("", nil, nil), 0.0)
}

func TestCategoryClassification(t *testing.T) {
	t.Parallel()

	m := CategoryClassification{}
	item := map[string]any{"title": "x"}

	tests := []struct {
		name     string
		actual   map[string]any
		expected map[string]any
		want     float64
	}{
		{
			name:     "exact match",
			actual:   map[string]any{"work_orders": items(item)},
			expected: map[string]any{"work_orders": items(item)},
			want:     1.0,
		},
		{
			name:     "jaccard partial credit",
			actual:   map[string]any{"work_orders": items(item), "tasks": items(item)},
			expected: map[string]any{"work_orders": items(item)},
			want:     0.5,
		},
		{
			name:     "disjoint",
			actual:   map[string]any{"tasks": items(item)},
			expected: map[string]any{"work_orders": items(item)},
			want:     0.0,
		},
		{
			name:     "both empty is exact match",
			actual:   map[string]any{"work_requests": []any{}, "work_orders": []any{}, "tasks": []any{}},
			expected: map[string]any{"work_requests": []any{}},
			want:     1.0,
		},
		{
			name:     "no expected output",
			actual:   map[string]any{"tasks": items(item)},
			expected: nil,
			want:     0.0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			approx(t, m.Evaluate("", tc.actual, tc.expected), tc.want)
		})
	}
}

func TestAssetIdentification(t *testing.T) {
	t.Parallel()

	m := AssetIdentification{}

	t.Run("mentioned asset missing from output", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{"work_orders": items(map[string]any{"title": "fix washer"})}
		approx(t, m.Evaluate("The tunnel washer 1 is leaking", actual, nil), 0.0)
	})

	t.Run("no mapped phrase is vacuous pass", func(t *testing.T) {
		t.Parallel()
		approx(t, m.Evaluate("please restock the supply shelf", nil, nil), 1.0)
	})

	t.Run("exact identification", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{"work_orders": items(map[string]any{"asset_id": "tunnel-001"})}
		approx(t, m.Evaluate("tunnel 1 is down", actual, nil), 1.0)
	})

	t.Run("recall over expected set", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{
			"work_orders": items(map[string]any{"asset_id": "tunnel-001"}),
		}
		score := m.Evaluate("tunnel 1 and dryer 12 both stopped", actual, nil)
		approx(t, score, 0.5)
	})

	t.Run("extra asset in output does not reduce recall", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{
			"work_orders": items(
				map[string]any{"asset_id": "tunnel-001"},
				map[string]any{"asset_id": "ironer-004"},
			),
		}
		approx(t, m.Evaluate("tunnel 1 is down", actual, nil), 1.0)
	})
}

func TestDowntimeExtraction(t *testing.T) {
	t.Parallel()

	m := DowntimeExtraction{}

	tests := []struct {
		name     string
		actual   any
		expected any
		want     float64
	}{
		{name: "relative error", actual: 5.0, expected: 4.0, want: 0.75},
		{name: "zero zero", actual: 0.0, expected: 0.0, want: 1.0},
		{name: "zero expected nonzero actual", actual: 2.0, expected: 0.0, want: 0.0},
		{name: "exact numeric", actual: 4.0, expected: 4.0, want: 1.0},
		{name: "huge overshoot floors at zero", actual: 100.0, expected: 4.0, want: 0.0},
		{name: "equal strings", actual: "4 hours", expected: "4 hours", want: 1.0},
		{name: "type mismatch", actual: "4 hours", expected: 4.0, want: 0.0},
		{name: "both null", actual: nil, expected: nil, want: 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			actual := map[string]any{"equipment_downtime": tc.actual}
			expected := map[string]any{"equipment_downtime": tc.expected}
			approx(t, m.Evaluate("", actual, expected), tc.want)
		})
	}

	t.Run("no expected output", func(t *testing.T) {
		t.Parallel()
		approx(t, m.Evaluate("", map[string]any{"equipment_downtime": 4.0}, nil), 0.0)
	})
}

func TestCompleteness(t *testing.T) {
	t.Parallel()

	m := Completeness{}
	expected := map[string]any{"work_orders": items(map[string]any{"title": "x"})}

	t.Run("partial fields", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{
			"work_orders": items(map[string]any{"title": "Fix dryer", "description": "", "status": "open"}),
		}
		approx(t, m.Evaluate("", actual, expected), 2.0/3.0)
	})

	t.Run("mean across categories", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{
			"work_orders": items(map[string]any{"title": "a", "description": "b", "status": "open"}),
			"tasks":       items(map[string]any{"title": "c"}),
		}
		approx(t, m.Evaluate("", actual, expected), (1.0+1.0/3.0)/2)
	})

	t.Run("no items", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{"work_orders": []any{}}
		approx(t, m.Evaluate("", actual, expected), 0.0)
	})

	t.Run("no expected output", func(t *testing.T) {
		t.Parallel()
		actual := map[string]any{"work_orders": items(map[string]any{"title": "a"})}
		approx(t, m.Evaluate("", actual, nil), 0.0)
	})
}

type panickyMetric struct{}

func (panickyMetric) Name() string { return "panicky" }
func (panickyMetric) Evaluate(string, map[string]any, map[string]any) float64 {
	panic("broken metric")
}

type nanMetric struct{}

func (nanMetric) Name() string { return "nan" }
func (nanMetric) Evaluate(string, map[string]any, map[string]any) float64 {
	return math.NaN()
}

type constMetric struct {
	name  string
	score float64
}

func (m constMetric) Name() string                                       { return m.name }
func (m constMetric) Evaluate(string, map[string]any, map[string]any) float64 { return m.score }

func TestSetContainsBrokenMetrics(t *testing.T) {
	t.Parallel()

	set := NewSet(panickyMetric{}, nanMetric{}, constMetric{name: "ok", score: 0.8})
	scores := set.Evaluate("input", map[string]any{}, nil)

	if scores["panicky"] != 0 {
		t.Fatalf("panicking metric score = %v, want 0", scores["panicky"])
	}
	if scores["nan"] != 0 {
		t.Fatalf("NaN metric score = %v, want 0", scores["nan"])
	}
	approx(t, scores["ok"], 0.8)
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	approx(t, Aggregate(nil), 0.0)
	approx(t, Aggregate(map[string]float64{"a": 1.0}), 1.0)
	// Absent metrics are excluded from the mean, not counted as zero.
	approx(t, Aggregate(map[string]float64{"a": 1.0, "b": 0.5}), 0.75)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := RegisterStandard(r, triageValidator(t)); err != nil {
		t.Fatalf("RegisterStandard: %v", err)
	}
	if _, ok := r.Get("schema_validity"); !ok {
		t.Fatal("schema_validity not registered")
	}
	if _, err := r.Resolve([]string{"schema_validity", "completeness_score"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := r.Resolve([]string{"nope"}); err == nil {
		t.Fatal("Resolve accepted unknown metric")
	}
	if err := r.Register(CategoryClassification{}); err == nil {
		t.Fatal("duplicate registration succeeded")
	}
}
