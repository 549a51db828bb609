package models

import (
	"time"
)

// DelegationRequest describes one task handed to the agent loop.
// It is created once by the caller and never mutated.
type DelegationRequest struct {
	// Task is the instruction the agent should carry out.
	Task string `json:"task"`

	// Context carries free-form background the agent may need.
	Context string `json:"context,omitempty"`

	// ExpectedOutcome hints at what a successful result looks like.
	ExpectedOutcome string `json:"expected_outcome,omitempty"`

	// SessionID identifies the owning conversation session.
	SessionID string `json:"session_id"`

	// MessageID identifies the message that triggered the delegation.
	MessageID string `json:"message_id"`
}

// AgentContext carries per-delegation settings supplied by the caller.
// It is read-only to the loop.
type AgentContext struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`

	// Provider selects the LLM backend ("anthropic", "openai").
	Provider string `json:"provider,omitempty"`

	// Model overrides the provider's default model when set.
	Model string `json:"model,omitempty"`

	// MaxToolCalls caps total tool invocations for the delegation.
	// Default: 25.
	MaxToolCalls int `json:"max_tool_calls,omitempty"`

	// Timeout bounds the whole delegation (0 = no limit).
	Timeout time.Duration `json:"timeout,omitempty"`

	// AutoConfirmDangerous injects a confirmed flag into shell tool
	// arguments so gated commands run without asking.
	AutoConfirmDangerous bool `json:"auto_confirm_dangerous,omitempty"`

	// AbortOnReject terminates the delegation when a permission
	// request is rejected instead of failing just that step.
	AbortOnReject bool `json:"abort_on_reject,omitempty"`

	// Skills lists skill identifiers available to this delegation.
	Skills []string `json:"skills,omitempty"`
}

// DefaultMaxToolCalls applies when AgentContext.MaxToolCalls is unset.
const DefaultMaxToolCalls = 25

// ToolCallBudget returns the effective tool-call cap.
func (c AgentContext) ToolCallBudget() int {
	if c.MaxToolCalls > 0 {
		return c.MaxToolCalls
	}
	return DefaultMaxToolCalls
}

// TurnBudget derives the turn cap from the tool-call cap, assuming a
// handful of calls per turn. It is a loose bound, not a hard contract.
func (c AgentContext) TurnBudget() int {
	budget := (c.ToolCallBudget() + 4) / 5
	if budget < 1 {
		budget = 1
	}
	return budget
}

// RunStatus is the terminal state of a delegation.
type RunStatus string

const (
	// RunDone means the loop ended naturally.
	RunDone RunStatus = "done"
	// RunFailed means an unrecoverable error ended the loop, or every
	// executed step failed.
	RunFailed RunStatus = "failed"
	// RunAborted means the caller's cancellation signal ended the loop.
	RunAborted RunStatus = "aborted"
)

// AgentResult is produced once when a delegation terminates.
type AgentResult struct {
	Success bool      `json:"success"`
	Status  RunStatus `json:"status"`

	// Summary is always populated, falling back to a fixed string when
	// the model produced no usable text.
	Summary string `json:"summary"`

	// Details is the full textual log assembled from the step ledger.
	Details string `json:"details,omitempty"`

	// ModifiedFiles lists file paths heuristically extracted from shell
	// commands. Best effort only; it can both miss and over-report.
	ModifiedFiles []string `json:"modified_files,omitempty"`

	// Errors aggregates step-level error messages in execution order.
	Errors []string `json:"errors,omitempty"`

	ToolCallCount int           `json:"tool_call_count"`
	Duration      time.Duration `json:"duration"`

	// Steps is a copy of the ledger at termination.
	Steps []AgentStep `json:"steps,omitempty"`
}
