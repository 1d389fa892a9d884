// Package transform provides the keyword-table classifiers used to enrich
// extracted work items: asset mapping, work-type urgency classification,
// category classification, and personnel extraction.
package transform

import (
	"regexp"
	"strings"
)

// assetVariants maps canonical asset ids to the spoken variants that appear
// in voice transcriptions. Iteration order matters for ties, so the ids are
// kept in a fixed slice.
var assetOrder = []string{"tunnel-001", "tunnel-002", "dryer-012", "dryer-022", "ironer-004"}

var assetVariants = map[string][]string{
	"tunnel-001": {"tunnel washer 1", "tunnel 1", "tunnel one", "tw1", "tw 1"},
	"tunnel-002": {"tunnel washer 2", "tunnel 2", "tunnel two", "tw2", "tw 2"},
	"dryer-012":  {"dryer 12", "clm 12", "clm dryer 12", "d12", "dryer twelve"},
	"dryer-022":  {"dryer 22", "incline dryer 22", "d22", "dryer twenty two"},
	"ironer-004": {"ironer 4", "iron 4", "ironer number 4", "i4", "ironer four"},
}

// ExtractAssetID returns the canonical id of the first asset mentioned in the
// text, or "" when no known asset phrase appears.
func ExtractAssetID(text string) string {
	lower := strings.ToLower(text)
	for _, assetID := range assetOrder {
		for _, variant := range assetVariants[assetID] {
			if strings.Contains(lower, variant) {
				return assetID
			}
		}
	}
	return ""
}

var workTypeOrder = []string{"emergency-001", "urgent-002", "routine-003", "low-004"}

var workTypeKeywords = map[string][]string{
	"emergency-001": {
		"emergency", "critical", "safety hazard", "production stopped",
		"leak", "failure", "down", "broken", "not working",
	},
	"urgent-002": {
		"urgent", "asap", "as soon as possible", "high priority",
		"priority", "soon", "quickly",
	},
	"routine-003": {
		"routine", "scheduled", "preventive", "pm", "regular",
		"maintenance", "inspection",
	},
	"low-004": {
		"when possible", "low priority", "whenever", "non-urgent",
		"eventually", "sometime",
	},
}

// ClassifyWorkType maps urgency indicators in the text to a work-type id.
// Emergency keywords win over urgent ones, and so on down the list; "" means
// no indicator matched.
func ClassifyWorkType(text string) string {
	lower := strings.ToLower(text)
	for _, workTypeID := range workTypeOrder {
		for _, keyword := range workTypeKeywords[workTypeID] {
			if strings.Contains(lower, keyword) {
				return workTypeID
			}
		}
	}
	return ""
}

// Category labels produced by ClassifyCategory.
const (
	CategoryWorkRequest    = "work_request"
	CategoryWorkOrder      = "work_order"
	CategoryInspectionTask = "inspection_task"
	CategoryGeneralTask    = "general_task"
)

var (
	workRequestPhrases = []string{"work request", "create a work request", "put in a work request"}
	workOrderPhrases   = []string{"work order", "create a work order", "generate a work order"}
	inspectionPhrases  = []string{"inspection", "check", "verify", "inspect"}
	generalTaskPhrases = []string{"order", "call", "coordinate", "administrative", "admin"}
)

// ClassifyCategory buckets a transcription by explicit mentions first, then
// falls back on urgency: emergency and urgent work becomes a work order,
// everything else a work request.
func ClassifyCategory(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, workRequestPhrases) {
		return CategoryWorkRequest
	}
	if containsAny(lower, workOrderPhrases) {
		return CategoryWorkOrder
	}
	if containsAny(lower, inspectionPhrases) {
		return CategoryInspectionTask
	}
	if containsAny(lower, generalTaskPhrases) {
		return CategoryGeneralTask
	}
	switch ClassifyWorkType(text) {
	case "emergency-001", "urgent-002":
		return CategoryWorkOrder
	default:
		return CategoryWorkRequest
	}
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

var assignmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)assign(?:ed)?\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)for\s+(\w+)`),
	regexp.MustCompile(`(?i)send\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)give\s+to\s+(\w+)`),
	regexp.MustCompile(`(?i)(\w+)\s+should\s+handle`),
	regexp.MustCompile(`(?i)(\w+)\s+can\s+do`),
}

// ExtractAssignedTo pulls a personnel assignment ("assign to John", "send to
// Sarah") out of the text, title-cased, or "" when none is found.
func ExtractAssignedTo(text string) string {
	for _, pattern := range assignmentPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			name := strings.ToLower(match[1])
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return ""
}
