// Package report renders evaluation run artifacts: JSON results, a text
// classification report, an HTML dashboard, and a Mermaid diagram of the
// executed graph. One timestamped directory is created per run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/abhesrivas/industriage/eval"
	"github.com/abhesrivas/industriage/transform"
)

// OutputDir creates base/<workflow>/<timestamp>_<model>/ and returns its path.
func OutputDir(base, workflow, model string, now time.Time) (string, error) {
	stamp := now.Format("20060102_150405")
	clean := strings.NewReplacer(":", "_", "/", "_", " ", "_").Replace(model)
	if clean == "" {
		clean = "unknown"
	}
	dir := filepath.Join(base, workflow, stamp+"_"+clean)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}
	return dir, nil
}

// MetricStats summarizes one metric across a run.
type MetricStats struct {
	Name        string  `json:"name"`
	Average     float64 `json:"average"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	PassRate    float64 `json:"pass_rate"`
	SampleCount int     `json:"sample_count"`
}

// passThreshold is the score above which an item counts as passing a metric.
const passThreshold = 0.8

// Stats computes per-metric statistics over the items that carry each metric.
func Stats(results []eval.Result) []MetricStats {
	sums := map[string]*MetricStats{}
	for _, result := range results {
		for name, score := range result.Metrics {
			stats, ok := sums[name]
			if !ok {
				stats = &MetricStats{Name: name, Min: score, Max: score}
				sums[name] = stats
			}
			if score < stats.Min {
				stats.Min = score
			}
			if score > stats.Max {
				stats.Max = score
			}
			stats.Average += score
			if score > passThreshold {
				stats.PassRate++
			}
			stats.SampleCount++
		}
	}
	out := make([]MetricStats, 0, len(sums))
	for _, stats := range sums {
		stats.Average /= float64(stats.SampleCount)
		stats.PassRate /= float64(stats.SampleCount)
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type jsonResult struct {
	Input          string             `json:"input_text"`
	Success        bool               `json:"success"`
	Metrics        map[string]float64 `json:"metrics"`
	AggregateScore float64            `json:"aggregate_score"`
	Errors         []string           `json:"errors"`
	ExecutionSecs  float64            `json:"execution_time"`
	ActualOutput   map[string]any     `json:"actual_output"`
	ExpectedOutput map[string]any     `json:"expected_output,omitempty"`
}

type jsonPayload struct {
	Timestamp string       `json:"timestamp"`
	Workflow  string       `json:"workflow"`
	Summary   jsonSummary  `json:"summary"`
	Results   []jsonResult `json:"results"`
}

type jsonSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	SuccessRate   float64 `json:"success_rate"`
	AverageScore  float64 `json:"average_score"`
	AverageTimeSc float64 `json:"average_execution_time"`
}

// WriteJSON saves the full result set for downstream analysis.
func WriteJSON(path, workflow string, results []eval.Result, now time.Time) error {
	summary := eval.Summarize(results)
	payload := jsonPayload{
		Timestamp: now.Format(time.RFC3339),
		Workflow:  workflow,
		Summary: jsonSummary{
			TotalItems:   summary.Items,
			Successful:   summary.Succeeded,
			AverageScore: summary.AverageScore,
		},
		Results: make([]jsonResult, 0, len(results)),
	}
	if summary.Items > 0 {
		payload.Summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Items)
		payload.Summary.AverageTimeSc = summary.TotalDuration.Seconds() / float64(summary.Items)
	}
	for _, result := range results {
		payload.Results = append(payload.Results, jsonResult{
			Input:          result.Input,
			Success:        result.Success,
			Metrics:        result.Metrics,
			AggregateScore: result.AggregateScore,
			Errors:         result.Errors,
			ExecutionSecs:  result.ExecutionTime.Seconds(),
			ActualOutput:   result.ActualOutput,
			ExpectedOutput: result.ExpectedOutput,
		})
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

// WriteText renders the plain-text classification report.
func WriteText(path, workflow string, results []eval.Result, now time.Time) error {
	summary := eval.Summarize(results)
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	b.WriteString(rule + "\n")
	b.WriteString("WORKFLOW EVALUATION CLASSIFICATION REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Workflow: %s\n", workflow)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("OVERALL PERFORMANCE\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Total Items Processed: %d\n", summary.Items)
	successRate := 0.0
	avgTime := 0.0
	if summary.Items > 0 {
		successRate = float64(summary.Succeeded) / float64(summary.Items) * 100
		avgTime = summary.TotalDuration.Seconds() / float64(summary.Items)
	}
	fmt.Fprintf(&b, "Successful: %d (%.1f%%)\n", summary.Succeeded, successRate)
	fmt.Fprintf(&b, "Failed: %d (%.1f%%)\n", summary.Items-summary.Succeeded, 100-successRate)
	fmt.Fprintf(&b, "Average Processing Time: %.3fs\n\n", avgTime)

	stats := Stats(results)
	if len(stats) > 0 {
		b.WriteString("METRICS BREAKDOWN\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "%s:\n", s.Name)
			fmt.Fprintf(&b, "  Average: %.3f  Min: %.3f  Max: %.3f  Pass Rate: %.1f%%\n",
				s.Average, s.Min, s.Max, s.PassRate*100)
		}
		b.WriteString("\n")
	}

	if breakdown := inputBreakdown(results); breakdown != "" {
		b.WriteString("INPUT BREAKDOWN\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		b.WriteString(breakdown + "\n")
	}

	failures := 0
	for _, result := range results {
		if len(result.Errors) > 0 {
			failures++
		}
	}
	if failures > 0 {
		b.WriteString("ERROR ANALYSIS\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, result := range results {
			if len(result.Errors) == 0 {
				continue
			}
			fmt.Fprintf(&b, "Item %d: %s\n", i+1, strings.Join(result.Errors, "; "))
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// inputBreakdown tallies asset and work-type mentions across the evaluated
// inputs using the deterministic keyword classifiers.
func inputBreakdown(results []eval.Result) string {
	assets := map[string]int{}
	workTypes := map[string]int{}
	for _, result := range results {
		if id := transform.ExtractAssetID(result.Input); id != "" {
			assets[id]++
		}
		if id := transform.ClassifyWorkType(result.Input); id != "" {
			workTypes[id]++
		}
	}
	if len(assets) == 0 && len(workTypes) == 0 {
		return ""
	}

	var b strings.Builder
	for _, line := range []struct {
		label  string
		counts map[string]int
	}{
		{"Assets mentioned", assets},
		{"Work types", workTypes},
	} {
		if len(line.counts) == 0 {
			continue
		}
		names := make([]string, 0, len(line.counts))
		for name := range line.counts {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "%s:\n", line.label)
		for _, name := range names {
			fmt.Fprintf(&b, "  %-14s %d\n", name, line.counts[name])
		}
	}
	return b.String()
}

// WriteMermaid saves the graph flowchart next to the run results.
func WriteMermaid(path, diagram string) error {
	return os.WriteFile(path, []byte(diagram), 0o644)
}

// Artifact file names within a run's output directory.
const (
	DashboardFile = "dashboard.html"
	ResultsFile   = "results.json"
	TextFile      = "classification_report.txt"
	DiagramFile   = "workflow_diagram.mmd"
)

// WriteAll renders every artifact for a finished run into dir.
func WriteAll(dir, workflow, diagram string, results []eval.Result, now time.Time) error {
	if err := WriteJSON(filepath.Join(dir, ResultsFile), workflow, results, now); err != nil {
		return err
	}
	if err := WriteText(filepath.Join(dir, TextFile), workflow, results, now); err != nil {
		return err
	}
	if err := WriteHTML(filepath.Join(dir, DashboardFile), workflow, results, now); err != nil {
		return err
	}
	if diagram == "" {
		return nil
	}
	return WriteMermaid(filepath.Join(dir, DiagramFile), diagram)
}
