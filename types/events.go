package types

import "time"

type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventItemStarted   EventType = "item.started"
	EventItemCompleted EventType = "item.completed"
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
)

type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId,omitempty"`
	Workflow  string    `json:"workflow,omitempty"`
	StepName  string    `json:"stepName,omitempty"`
	ItemIndex int       `json:"itemIndex,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}
