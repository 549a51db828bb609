package models

import "time"

// StepStatus is the persisted outcome of a step. A step that is still
// executing is only "running" in the event stream; the stored record
// moves straight to success or failed.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// AgentStep records one tool invocation together with the narrative
// text surrounding it. Result, Status, and Error are filled exactly
// once by the dispatcher; Summary is the only field mutated after
// completion, filled retroactively from the next turn's leading text.
type AgentStep struct {
	ID         string         `json:"id"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     any            `json:"result,omitempty"`
	Status     StepStatus     `json:"status,omitempty"`
	Error      string         `json:"error,omitempty"`

	// Thinking is text the model emitted before requesting this call.
	Thinking string `json:"thinking,omitempty"`

	// Summary is text the model emitted after this call, attributed
	// once the next turn begins or the loop terminates.
	Summary string `json:"summary,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
