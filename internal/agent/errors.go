package agent

import "errors"

var (
	// ErrNoProvider means the loop was constructed without an LLM
	// backend.
	ErrNoProvider = errors.New("agent: no provider configured")

	// ErrToolsUnsupported means the selected provider cannot emit tool
	// calls.
	ErrToolsUnsupported = errors.New("agent: provider does not support tool calling")
)
