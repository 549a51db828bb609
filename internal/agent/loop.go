// Package agent runs the tool-calling delegation loop: it streams
// model turns, executes the tool calls they emit through the
// dispatcher, records every step in a ledger, and terminates with a
// structured result.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/delegate/internal/dispatch"
	"github.com/haasonsaas/delegate/internal/observability"
	"github.com/haasonsaas/delegate/pkg/models"
)

// Run executes one delegation to completion. The returned error is
// non-nil only for configuration problems; stream failures,
// cancellation, and failed steps are all reported inside AgentResult.
func (l *Loop) Run(ctx context.Context, req models.DelegationRequest, agentCtx models.AgentContext) (*models.AgentResult, error) {
	if l.provider == nil {
		return nil, ErrNoProvider
	}
	if !l.provider.SupportsTools() {
		return nil, ErrToolsUnsupported
	}

	if agentCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, agentCtx.Timeout)
		defer cancel()
	}

	run := &delegationRun{
		loop:     l,
		req:      req,
		agentCtx: agentCtx,
		ledger:   newLedger(l.observer),
		started:  time.Now(),
		messages: []CompletionMessage{{Role: models.RoleUser, Content: taskPrompt(req)}},
		tools:    l.toolSchemas(),
	}

	status := run.execute(ctx)

	l.metrics.ObserveDelegation(string(status))
	result := buildResult(status, run.ledger.snapshot(), run.pending.String(), run.commands, run.toolCalls, run.started)
	l.logger.Info("delegation finished",
		"session_id", req.SessionID,
		"status", string(status),
		"success", result.Success,
		"tool_calls", result.ToolCallCount,
		"duration", result.Duration,
	)
	return result, nil
}

// delegationRun holds the mutable state of one delegation. It lives on
// a single goroutine for its whole lifetime.
type delegationRun struct {
	loop     *Loop
	req      models.DelegationRequest
	agentCtx models.AgentContext
	ledger   *ledger
	started  time.Time

	messages  []CompletionMessage
	tools     []ToolSchema
	toolCalls int
	commands  []string

	// pending buffers text awaiting attribution: it becomes the next
	// step's thinking, the previous step's summary at a turn's first
	// tool call, or the final narrative at termination. It survives
	// turn boundaries so trailing text of turn N reaches the summary
	// of N's last step when turn N+1 begins.
	pending strings.Builder
}

// execute runs turns until a terminal state is reached.
func (r *delegationRun) execute(ctx context.Context) models.RunStatus {
	budget := r.agentCtx.ToolCallBudget()

	for turn := 0; turn < r.agentCtx.TurnBudget(); turn++ {
		status, terminal := r.runTurn(ctx, turn)
		if terminal {
			return status
		}
		if r.toolCalls >= budget {
			// Soft cutoff: the budget spent is a completed delegation,
			// not a failure.
			r.loop.observer.Progress("tool call budget reached")
			return models.RunDone
		}
	}
	return models.RunDone
}

// runTurn streams one completion and dispatches its tool calls. It
// returns the terminal status and true when the delegation is over,
// or (_, false) when another turn is needed.
func (r *delegationRun) runTurn(ctx context.Context, turn int) (models.RunStatus, bool) {
	l := r.loop
	l.logger.Debug("turn started", "session_id", r.req.SessionID, "turn", turn)

	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()

	streamStart := time.Now()
	stream, err := l.provider.Complete(turnCtx, &CompletionRequest{
		Model:     r.agentCtx.Model,
		System:    l.systemPrompt,
		Messages:  r.messages,
		Tools:     r.tools,
		MaxTokens: l.maxTokens,
	})
	if err != nil {
		return r.fail(ctx, err), true
	}
	// Leaving mid-stream must not strand the producer goroutine on a
	// blocked send: cancel the turn and consume whatever is left.
	defer func() {
		cancelTurn()
		go func() {
			for range stream {
			}
		}()
	}()

	var turnText strings.Builder
	var turnCalls []models.ToolCall
	var turnResults []models.ToolResult
	firstCallOfTurn := true

	for chunk := range stream {
		if ctx.Err() != nil {
			return models.RunAborted, true
		}

		switch {
		case chunk.Error != nil:
			l.metrics.ObserveLLM(l.provider.Name(), r.agentCtx.Model, time.Since(streamStart).Seconds())
			return r.fail(ctx, chunk.Error), true

		case chunk.Text != "":
			r.pending.WriteString(chunk.Text)
			turnText.WriteString(chunk.Text)
			l.observer.TextChunk(chunk.Text)

		case chunk.Reasoning != "":
			// Reasoning is logged but never attributed to steps.
			l.logger.Debug("model reasoning",
				"session_id", r.req.SessionID,
				"text", observability.ScrubCredentials(chunk.Reasoning),
			)

		case chunk.ToolCall != nil:
			if ctx.Err() != nil {
				return models.RunAborted, true
			}
			if r.toolCalls >= r.agentCtx.ToolCallBudget() {
				return models.RunDone, true
			}

			buffered := r.pending.String()
			r.pending.Reset()

			thinking := ""
			if firstCallOfTurn && r.ledger.len() > 0 {
				r.ledger.annotateLast(buffered)
			} else {
				thinking = buffered
			}
			firstCallOfTurn = false

			call := *chunk.ToolCall
			res := r.dispatchCall(ctx, call, thinking)
			r.toolCalls++
			turnCalls = append(turnCalls, call)
			turnResults = append(turnResults, models.ToolResult{
				ToolCallID: call.ID,
				Content:    toolResultContent(res),
				IsError:    !res.Success,
			})
			if res.Denied && r.agentCtx.AbortOnReject {
				return models.RunAborted, true
			}
		}
	}
	l.metrics.ObserveLLM(l.provider.Name(), r.agentCtx.Model, time.Since(streamStart).Seconds())

	if ctx.Err() != nil {
		return models.RunAborted, true
	}

	if len(turnCalls) == 0 {
		// Natural end: trailing text annotates the last step and stays
		// in pending as the result summary.
		r.ledger.annotateLast(r.pending.String())
		return models.RunDone, true
	}

	r.messages = append(r.messages,
		CompletionMessage{Role: models.RoleAssistant, Content: turnText.String(), ToolCalls: turnCalls},
		CompletionMessage{Role: models.RoleTool, ToolResults: turnResults},
	)
	return "", false
}

// dispatchCall records a step, executes the call, and completes the
// step from the result.
func (r *delegationRun) dispatchCall(ctx context.Context, call models.ToolCall, thinking string) dispatch.Result {
	step := r.ledger.start(call, thinking)

	res := r.loop.dispatcher.Dispatch(ctx, dispatch.Call{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: call.Arguments(),
		SessionID: r.req.SessionID,
		MessageID: r.req.MessageID,
		Confirmed: r.agentCtx.AutoConfirmDangerous,
	})
	if res.Command != "" {
		r.commands = append(r.commands, res.Command)
	}
	r.ledger.complete(step, res)
	if !res.Success {
		r.loop.observer.ErrorMessage(fmt.Sprintf("%s: %s", call.Name, res.Error))
	}
	return res
}

// fail classifies a stream or provider error: Aborted when it
// coincides with cancellation, Failed otherwise. The partial ledger is
// preserved either way.
func (r *delegationRun) fail(ctx context.Context, err error) models.RunStatus {
	if ctx.Err() != nil {
		return models.RunAborted
	}
	r.loop.logger.Error("delegation stream failed",
		"session_id", r.req.SessionID,
		"error", err,
	)
	r.loop.observer.ErrorMessage(err.Error())
	return models.RunFailed
}

// toolSchemas converts the dispatcher's definitions to the provider
// schema shape.
func (l *Loop) toolSchemas() []ToolSchema {
	defs := l.dispatcher.Definitions()
	schemas := make([]ToolSchema, 0, len(defs))
	for _, def := range defs {
		schemas = append(schemas, ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Schema,
		})
	}
	return schemas
}

// taskPrompt renders the delegation request as the first user message.
func taskPrompt(req models.DelegationRequest) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(req.Task)
	if req.Context != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(req.Context)
	}
	if req.ExpectedOutcome != "" {
		b.WriteString("\n\nExpected outcome:\n")
		b.WriteString(req.ExpectedOutcome)
	}
	return b.String()
}

// toolResultContent is what the model sees for one executed call.
func toolResultContent(res dispatch.Result) string {
	if res.Success {
		if res.Output == "" {
			return "(no output)"
		}
		return res.Output
	}
	if res.Output != "" {
		return fmt.Sprintf("Error: %s\n%s", res.Error, res.Output)
	}
	return "Error: " + res.Error
}
