package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/delegate/pkg/models"
)

// LLMProvider is a streaming language-model backend.
//
// Implementations must be safe for concurrent use; multiple
// delegations may call Complete simultaneously.
type LLMProvider interface {
	// Complete sends a request and returns a channel of streamed
	// chunks. The channel is closed after a Done or Error chunk.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name ("anthropic", "openai").
	Name() string

	// SupportsTools reports whether the provider can emit tool calls.
	SupportsTools() bool
}

// CompletionRequest carries one streaming completion call.
type CompletionRequest struct {
	// Model selects the model; empty uses the provider default.
	Model string `json:"model"`

	// System is the system prompt, kept apart from Messages because
	// most APIs take it out of band.
	System string `json:"system,omitempty"`

	// Messages is the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools lists the schemas the model may call.
	Tools []ToolSchema `json:"tools,omitempty"`

	// MaxTokens bounds the response; 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionMessage is one entry of conversation history. Role is
// "user", "assistant", or "tool".
type CompletionMessage struct {
	Role        models.Role         `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is one streamed event. Exactly one of Text,
// Reasoning, ToolCall, Done, or Error is meaningful per chunk.
type CompletionChunk struct {
	// Text is a partial response text delta.
	Text string `json:"text,omitempty"`

	// Reasoning is extended-thinking text, streamed apart from the
	// visible response.
	Reasoning string `json:"reasoning,omitempty"`

	// ToolCall is a complete tool execution request.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true on the final chunk of a successful stream.
	Done bool `json:"done,omitempty"`

	// Error terminates the stream.
	Error error `json:"-"`
}

// ToolSchema describes one tool as advertised to the model.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}
