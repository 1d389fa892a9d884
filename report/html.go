package report

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/abhesrivas/industriage/eval"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"score": func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"secs":  func(d time.Duration) string { return fmt.Sprintf("%.2fs", d.Seconds()) },
	"inc":   func(i int) int { return i + 1 },
	"join":  func(parts []string) string { return strings.Join(parts, ", ") },
	"title": func(name string) string {
		words := strings.Split(name, "_")
		for i, word := range words {
			if word != "" {
				words[i] = strings.ToUpper(word[:1]) + word[1:]
			}
		}
		return strings.Join(words, " ")
	},
	"truncate": func(s string) string {
		if len(s) > 200 {
			return s[:200] + "..."
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Workflow}} Evaluation Results</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
		.container { max-width: 1200px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; }
		h1, h2 { color: #333; }
		.summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin: 20px 0; }
		.metric-card { background: #f8f9fa; padding: 20px; border-radius: 8px; text-align: center; }
		.metric-value { font-size: 2em; font-weight: bold; color: #007bff; }
		.metric-label { color: #666; margin-top: 5px; }
		table { width: 100%; border-collapse: collapse; margin: 20px 0; }
		th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }
		th { background-color: #f8f9fa; }
		.success { color: #28a745; }
		.failure { color: #dc3545; }
		.result-item { margin: 10px 0; padding: 15px; border-left: 4px solid #007bff; background: #f8f9fa; }
		.result-item.failed { border-left-color: #dc3545; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Workflow}} Evaluation Results</h1>
		<p>Generated on: {{.Generated}}</p>

		<div class="summary">
			<div class="metric-card">
				<div class="metric-value">{{.Total}}</div>
				<div class="metric-label">Total Items</div>
			</div>
			<div class="metric-card">
				<div class="metric-value success">{{pct .SuccessRate}}</div>
				<div class="metric-label">Success Rate</div>
			</div>
			<div class="metric-card">
				<div class="metric-value">{{score .AverageScore}}</div>
				<div class="metric-label">Average Score</div>
			</div>
		</div>

		<h2>Metrics Breakdown</h2>
		<table>
			<thead>
				<tr><th>Metric</th><th>Average</th><th>Min</th><th>Max</th><th>Pass Rate (&gt;0.8)</th></tr>
			</thead>
			<tbody>
			{{range .Stats}}
				<tr>
					<td>{{title .Name}}</td>
					<td>{{score .Average}}</td>
					<td>{{score .Min}}</td>
					<td>{{score .Max}}</td>
					<td>{{pct .PassRate}}</td>
				</tr>
			{{end}}
			</tbody>
		</table>

		<h2>Individual Results</h2>
		{{range $i, $r := .Results}}
		<div class="result-item{{if not $r.Success}} failed{{end}}">
			<h4>Item {{inc $i}} — {{if $r.Success}}<span class="success">Success</span>{{else}}<span class="failure">Failed</span>{{end}}</h4>
			<p><strong>Input:</strong> {{truncate $r.Input}}</p>
			<p><strong>Execution Time:</strong> {{secs $r.ExecutionTime}}</p>
			{{if $r.Metrics}}<p><strong>Metrics:</strong>
				{{range $name, $score := $r.Metrics}}{{$name}}: {{score $score}} | {{end}}
			</p>{{end}}
			{{if $r.Errors}}<p><strong>Errors:</strong> {{join $r.Errors}}</p>{{end}}
		</div>
		{{end}}
	</div>
</body>
</html>
`))

type dashboardData struct {
	Workflow     string
	Generated    string
	Total        int
	SuccessRate  float64
	AverageScore float64
	Stats        []MetricStats
	Results      []eval.Result
}

// WriteHTML renders the run dashboard.
func WriteHTML(path, workflow string, results []eval.Result, now time.Time) error {
	summary := eval.Summarize(results)
	data := dashboardData{
		Workflow:     workflow,
		Generated:    now.Format("2006-01-02 15:04:05"),
		Total:        summary.Items,
		AverageScore: summary.AverageScore,
		Stats:        Stats(results),
		Results:      results,
	}
	if summary.Items > 0 {
		data.SuccessRate = float64(summary.Succeeded) / float64(summary.Items)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dashboard file: %w", err)
	}
	defer file.Close()
	if err := dashboardTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}
