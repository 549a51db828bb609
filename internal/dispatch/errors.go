package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ToolErrorType categorizes dispatch failures for metrics and for
// callers deciding how to react to a failed step.
type ToolErrorType string

const (
	// ToolErrorNotFound means no executor owns the requested name.
	ToolErrorNotFound ToolErrorType = "not_found"

	// ToolErrorInvalidInput means the call or the tool definition was
	// malformed.
	ToolErrorInvalidInput ToolErrorType = "invalid_input"

	// ToolErrorTimeout means the tool's own deadline expired.
	ToolErrorTimeout ToolErrorType = "timeout"

	// ToolErrorPermission means the permission gate rejected the call.
	ToolErrorPermission ToolErrorType = "permission"

	// ToolErrorNetwork means a transport failure.
	ToolErrorNetwork ToolErrorType = "network"

	// ToolErrorExecution means the tool ran and failed.
	ToolErrorExecution ToolErrorType = "execution"

	// ToolErrorUnknown is the fallback for unclassified failures.
	ToolErrorUnknown ToolErrorType = "unknown"
)

// ToolError is a structured dispatch failure.
type ToolError struct {
	Type    ToolErrorType
	Tool    string
	CallID  string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Tool != "" {
		return fmt.Sprintf("[tool:%s] %s: %s", e.Type, e.Tool, msg)
	}
	return fmt.Sprintf("[tool:%s] %s", e.Type, msg)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// AsToolError extracts a ToolError from an error chain.
func AsToolError(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// Classify infers an error type from an error's content. Used for
// errors coming out of registry tools and remote proxies, which report
// plain errors.
func Classify(err error) ToolErrorType {
	if err == nil {
		return ToolErrorUnknown
	}
	if toolErr, ok := AsToolError(err); ok {
		return toolErr.Type
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded"):
		return ToolErrorTimeout
	case strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "refused") ||
		strings.Contains(msg, "unreachable") ||
		strings.Contains(msg, "no such host"):
		return ToolErrorNetwork
	case strings.Contains(msg, "permission") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "access denied"):
		return ToolErrorPermission
	case strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "validation") ||
		strings.Contains(msg, "required") ||
		strings.Contains(msg, "missing"):
		return ToolErrorInvalidInput
	case strings.Contains(msg, "not found") ||
		strings.Contains(msg, "unknown tool"):
		return ToolErrorNotFound
	}
	return ToolErrorExecution
}
