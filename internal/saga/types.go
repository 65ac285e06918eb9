package saga

import (
	"context"
	"time"
)

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStateRunning   SagaState = "running"
	SagaStateCompleted SagaState = "completed"
	SagaStateFailed    SagaState = "failed"
)

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateRunning   StepState = "running"
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
	StepStateSkipped   StepState = "skipped"
)

// SagaID uniquely identifies a saga instance
type SagaID string

// StepID uniquely identifies a step within a saga
type StepID string

// SagaData holds the shared data for a saga execution.
// Steps read their inputs from it and write their outputs back.
type SagaData map[string]interface{}

// String returns the value for key, or "" when missing or not a string
func (d SagaData) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// StepResult is the explicit outcome of a step: success with data, or failure with an error
type StepResult struct {
	Success bool
	Data    interface{}
	Error   error
}

// Succeeded builds a successful result
func Succeeded(data interface{}) StepResult {
	return StepResult{Success: true, Data: data}
}

// Failed builds a failed result
func Failed(err error) StepResult {
	return StepResult{Success: false, Error: err}
}

// Step represents a single step in a saga
type Step interface {
	ID() StepID
	Execute(ctx context.Context, data SagaData) StepResult
}

// SagaDefinition defines the steps and flow of a saga
type SagaDefinition interface {
	ID() string
	Steps() []Step
	// Timeout bounds the whole saga; zero means no bound
	Timeout() time.Duration
}

// SagaInstance is the record of one execution
type SagaInstance struct {
	ID          SagaID          `json:"id"`
	Definition  string          `json:"definition"`
	State       SagaState       `json:"state"`
	Data        SagaData        `json:"data"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// FailedStep returns the step that failed, if any
func (s *SagaInstance) FailedStep() (StepExecution, bool) {
	for _, step := range s.Steps {
		if step.State == StepStateFailed {
			return step, true
		}
	}
	return StepExecution{}, false
}

// StepExecution represents the execution state of a step
type StepExecution struct {
	ID          StepID      `json:"id"`
	State       StepState   `json:"state"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      interface{} `json:"result,omitempty"`
}

// Duration returns how long the step ran
func (s StepExecution) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// SagaEvent represents an event in the saga lifecycle
type SagaEvent struct {
	SagaID    SagaID      `json:"saga_id"`
	StepID    StepID      `json:"step_id,omitempty"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Event types
const (
	EventSagaStarted   = "saga_started"
	EventSagaCompleted = "saga_completed"
	EventSagaFailed    = "saga_failed"
	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
)
