package agent

import (
	"log/slog"

	"github.com/haasonsaas/delegate/internal/dispatch"
	"github.com/haasonsaas/delegate/internal/observability"
)

const defaultSystemPrompt = `You are an autonomous agent completing a delegated task.
Work step by step. Use the available tools when they help; explain what
you are doing between tool calls, and finish with a concise summary of
what was accomplished.`

const defaultMaxTokens = 4096

// Options configures a Loop. Provider and Dispatcher are required;
// everything else has a working default.
type Options struct {
	Provider   LLMProvider
	Dispatcher *dispatch.Dispatcher
	Observer   Observer
	Metrics    *observability.Metrics
	Logger     *slog.Logger

	// SystemPrompt overrides the default agent instructions.
	SystemPrompt string

	// MaxTokens bounds each completion response.
	MaxTokens int
}

// Loop drives one delegation at a time through sequential turns.
// A single Loop value may run many delegations, concurrently from
// different goroutines; all per-delegation state lives in Run.
type Loop struct {
	provider     LLMProvider
	dispatcher   *dispatch.Dispatcher
	observer     Observer
	metrics      *observability.Metrics
	logger       *slog.Logger
	systemPrompt string
	maxTokens    int
}

// NewLoop creates a Loop from options.
func NewLoop(opts Options) *Loop {
	l := &Loop{
		provider:     opts.Provider,
		dispatcher:   opts.Dispatcher,
		observer:     opts.Observer,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		systemPrompt: opts.SystemPrompt,
		maxTokens:    opts.MaxTokens,
	}
	if l.dispatcher == nil {
		l.dispatcher = dispatch.New(dispatch.Options{})
	}
	if l.observer == nil {
		l.observer = NopObserver{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.systemPrompt == "" {
		l.systemPrompt = defaultSystemPrompt
	}
	if l.maxTokens <= 0 {
		l.maxTokens = defaultMaxTokens
	}
	return l
}
