package state

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is one persisted evaluation run.
type RunRecord struct {
	RunID        string         `json:"runId"`
	Workflow     string         `json:"workflow"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model,omitempty"`
	Status       string         `json:"status"`
	Items        int            `json:"items"`
	Succeeded    int            `json:"succeeded"`
	AverageScore float64        `json:"averageScore"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// ItemRecord is one evaluated dataset item within a run. Seq is the item's
// position in the dataset and is unique per run.
type ItemRecord struct {
	RunID          string             `json:"runId"`
	Seq            int                `json:"seq"`
	Input          string             `json:"input"`
	Success        bool               `json:"success"`
	AggregateScore float64            `json:"aggregateScore"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Errors         []string           `json:"errors,omitempty"`
	ActualOutput   map[string]any     `json:"actualOutput,omitempty"`
	ExpectedOutput map[string]any     `json:"expectedOutput,omitempty"`
	ExecutionTime  time.Duration      `json:"executionTime"`
	CreatedAt      time.Time          `json:"createdAt"`
}
