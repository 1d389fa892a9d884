package metric

import (
	"math"
	"strings"

	"github.com/abhesrivas/industriage/schema"
)

// workItemCategories are the top-level output buckets the triage workflow
// produces. Category, asset, and completeness metrics all range over them.
var workItemCategories = []string{"work_requests", "work_orders", "tasks"}

// assetPhrases maps canonical asset ids to the phrase variants technicians use
// for them in free-text reports.
var assetPhrases = map[string][]string{
	"tunnel-001": {"tunnel washer 1", "tunnel 1", "tunnel one"},
	"tunnel-002": {"tunnel washer 2", "tunnel 2", "tunnel two"},
	"dryer-012":  {"dryer 12", "clm 12", "clm dryer 12"},
	"dryer-022":  {"dryer 22", "incline dryer 22"},
	"ironer-004": {"ironer 4", "iron 4", "ironer number 4"},
}

// SchemaValidity scores 1.0 when the actual output validates against the
// workflow schema, else 0.0.
type SchemaValidity struct {
	validator *schema.Validator
}

func NewSchemaValidity(v *schema.Validator) *SchemaValidity {
	return &SchemaValidity{validator: v}
}

func (m *SchemaValidity) Name() string { return "schema_validity" }

func (m *SchemaValidity) Evaluate(_ string, actual, _ map[string]any) float64 {
	if m.validator == nil {
		return 0
	}
	if _, err := m.validator.Validate(actual); err != nil {
		return 0
	}
	return 1
}

// CategoryClassification compares which output categories are populated in
// actual vs expected. Exact set equality scores 1.0; otherwise the Jaccard
// index of the two sets.
type CategoryClassification struct{}

func (CategoryClassification) Name() string { return "category_classification_accuracy" }

func (CategoryClassification) Evaluate(_ string, actual, expected map[string]any) float64 {
	if len(expected) == 0 {
		return 0
	}
	expectedSet := populatedCategories(expected)
	actualSet := populatedCategories(actual)

	if setsEqual(expectedSet, actualSet) {
		return 1
	}
	union := 0
	intersection := 0
	for _, cat := range workItemCategories {
		inExpected := expectedSet[cat]
		inActual := actualSet[cat]
		if inExpected || inActual {
			union++
		}
		if inExpected && inActual {
			intersection++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// AssetIdentification scans the input for known asset phrases to derive the
// expected asset set, then scores recall of that set over the asset ids the
// output actually carries. No mentioned assets is a vacuous pass.
type AssetIdentification struct{}

func (AssetIdentification) Name() string { return "asset_identification_accuracy" }

func (AssetIdentification) Evaluate(input string, actual, _ map[string]any) float64 {
	lower := strings.ToLower(input)
	expected := map[string]bool{}
	for assetID, variants := range assetPhrases {
		for _, variant := range variants {
			if strings.Contains(lower, variant) {
				expected[assetID] = true
				break
			}
		}
	}
	if len(expected) == 0 {
		return 1
	}

	found := map[string]bool{}
	for _, cat := range workItemCategories {
		for _, item := range itemsIn(actual, cat) {
			if id, ok := item["asset_id"].(string); ok && id != "" {
				found[id] = true
			}
		}
	}
	if setsEqual(expected, found) {
		return 1
	}
	hit := 0
	for id := range expected {
		if found[id] {
			hit++
		}
	}
	return float64(hit) / float64(len(expected))
}

// DowntimeExtraction compares the reported equipment downtime against the
// expected value with relative-error partial credit for numeric answers.
type DowntimeExtraction struct{}

func (DowntimeExtraction) Name() string { return "downtime_extraction_accuracy" }

func (DowntimeExtraction) Evaluate(_ string, actual, expected map[string]any) float64 {
	if len(expected) == 0 {
		return 0
	}
	expectedVal := expected["equipment_downtime"]
	actualVal := actual["equipment_downtime"]

	expectedNum, expectedOK := asNumber(expectedVal)
	actualNum, actualOK := asNumber(actualVal)
	if expectedOK && actualOK {
		if expectedNum == 0 {
			if actualNum == 0 {
				return 1
			}
			return 0
		}
		relErr := math.Abs(expectedNum-actualNum) / expectedNum
		return math.Max(0, 1-relErr)
	}
	if expectedVal == actualVal {
		return 1
	}
	return 0
}

// Completeness scores each output item by the fraction of required fields
// present and non-empty, averaged across all items in all categories.
type Completeness struct{}

var completenessFields = []string{"title", "description", "status"}

func (Completeness) Name() string { return "completeness_score" }

func (Completeness) Evaluate(_ string, actual, expected map[string]any) float64 {
	if len(expected) == 0 {
		return 0
	}
	total := 0
	sum := 0.0
	for _, cat := range workItemCategories {
		for _, item := range itemsIn(actual, cat) {
			total++
			filled := 0
			for _, field := range completenessFields {
				if truthy(item[field]) {
					filled++
				}
			}
			sum += float64(filled) / float64(len(completenessFields))
		}
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

// StandardSet returns the five stock metrics wired to the given schema
// validator.
func StandardSet(v *schema.Validator) *Set {
	return NewSet(
		NewSchemaValidity(v),
		CategoryClassification{},
		AssetIdentification{},
		DowntimeExtraction{},
		Completeness{},
	)
}

// RegisterStandard registers the stock metrics in the registry.
func RegisterStandard(r *Registry, v *schema.Validator) error {
	for _, m := range []Metric{
		NewSchemaValidity(v),
		CategoryClassification{},
		AssetIdentification{},
		DowntimeExtraction{},
		Completeness{},
	} {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func populatedCategories(output map[string]any) map[string]bool {
	set := map[string]bool{}
	for _, cat := range workItemCategories {
		if len(itemsIn(output, cat)) > 0 {
			set[cat] = true
		}
	}
	return set
}

func itemsIn(output map[string]any, category string) []map[string]any {
	raw, ok := output[category].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
