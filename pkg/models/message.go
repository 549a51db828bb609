package models

import (
	"encoding/json"
)

// Role indicates the conversation message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is an LLM request to execute a tool. Input is the raw JSON
// argument object as streamed by the provider.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Arguments decodes the call input into a key/value map. Malformed or
// empty input yields an empty map rather than an error; the dispatcher
// treats missing keys as absent parameters.
func (tc ToolCall) Arguments() map[string]any {
	args := map[string]any{}
	if len(tc.Input) > 0 {
		_ = json.Unmarshal(tc.Input, &args)
	}
	return args
}

// ToolResult is the outcome of one tool execution as fed back to the
// model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}
