package eval

import (
	"sort"
	"time"
)

// Summary aggregates a finished run for reporting and persistence.
type Summary struct {
	Items         int                `json:"items"`
	Succeeded     int                `json:"succeeded"`
	AverageScore  float64            `json:"average_score"`
	MetricMeans   map[string]float64 `json:"metric_means"`
	TotalDuration time.Duration      `json:"total_duration"`
}

// Summarize reduces per-item results into run-level aggregates. Metric means
// are computed over the items that carry the metric, not over all items.
func Summarize(results []Result) Summary {
	summary := Summary{MetricMeans: map[string]float64{}}
	if len(results) == 0 {
		return summary
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	aggregate := 0.0
	for _, result := range results {
		summary.Items++
		if result.Success {
			summary.Succeeded++
		}
		summary.TotalDuration += result.ExecutionTime
		aggregate += result.AggregateScore
		for name, score := range result.Metrics {
			sums[name] += score
			counts[name]++
		}
	}
	summary.AverageScore = aggregate / float64(summary.Items)
	for name, sum := range sums {
		summary.MetricMeans[name] = sum / float64(counts[name])
	}
	return summary
}

// MetricNames returns the metric names present in a summary in stable order.
func (s Summary) MetricNames() []string {
	names := make([]string, 0, len(s.MetricMeans))
	for name := range s.MetricMeans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
