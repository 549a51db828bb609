// Package dispatch resolves model-issued tool calls to concrete
// executors and returns a uniform result shape.
//
// Resolution order: remote-proxy tools, then user-defined tools with a
// declared execution kind (shell, http, builtin delegation), then the
// in-process registry. Sensitive executions go through the permission
// gate before running.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/delegate/internal/config"
	"github.com/haasonsaas/delegate/internal/observability"
	"github.com/haasonsaas/delegate/internal/permission"
)

// Result is the uniform outcome of one tool dispatch.
type Result struct {
	Success  bool
	Output   string
	Error    string
	Duration time.Duration
	// ErrorType classifies a failure; empty on success.
	ErrorType ToolErrorType
	// Denied marks a permission rejection so the loop can apply its
	// abort-on-reject policy. Denied results always have Success false.
	Denied bool
	// Command is the rendered shell command, when the call executed
	// one. The loop feeds it to the modified-files heuristic.
	Command string
}

// Call is one model-issued tool invocation.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
	SessionID string
	MessageID string
	// Confirmed skips the permission gate for gated tools. Set by the
	// loop when the delegation runs with auto-confirm enabled.
	Confirmed bool
}

// Definition describes one dispatchable tool as advertised to the
// model.
type Definition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// RemoteProxy executes tools owned by external servers. Resolve maps a
// model-issued name, possibly a short form, to the fully qualified
// remote identifier, using the call's arguments as a disambiguation
// hint; it returns false when the proxy does not own the name.
type RemoteProxy interface {
	Resolve(name string, args map[string]any) (string, bool)
	Call(ctx context.Context, fullName string, args map[string]any) (string, error)
	Definitions() []Definition
}

// Dispatcher routes tool calls to executors.
type Dispatcher struct {
	registry *Registry
	custom   map[string]config.ToolDef
	remote   RemoteProxy
	gate     *permission.Gate
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Options configures a Dispatcher. Registry, Remote, Gate, and Metrics
// are all optional; a nil gate disables approval prompting entirely.
type Options struct {
	Registry *Registry
	Custom   []config.ToolDef
	Remote   RemoteProxy
	Gate     *permission.Gate
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		registry: opts.Registry,
		custom:   make(map[string]config.ToolDef, len(opts.Custom)),
		remote:   opts.Remote,
		gate:     opts.Gate,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	for _, def := range opts.Custom {
		d.custom[def.Name] = def
	}
	return d
}

// Definitions returns every tool the dispatcher can execute, for
// advertising to the model: custom tools, registry tools not shadowed
// by a custom definition, and remote-proxy tools.
func (d *Dispatcher) Definitions() []Definition {
	var defs []Definition
	for _, def := range d.custom {
		defs = append(defs, Definition{
			Name:        def.Name,
			Description: def.Description,
			Schema:      def.SchemaJSON(),
		})
	}
	for _, tool := range d.registry.List() {
		if _, shadowed := d.custom[tool.Name()]; shadowed {
			continue
		}
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	if d.remote != nil {
		defs = append(defs, d.remote.Definitions()...)
	}
	return defs
}

// Dispatch resolves and executes one tool call. Failures of every
// flavor come back as a Result with Success false; Dispatch itself
// never returns an error to the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	start := time.Now()
	res, kind := d.dispatch(ctx, call)
	res.Duration = time.Since(start)
	if !res.Success && res.ErrorType == "" {
		res.ErrorType = ToolErrorUnknown
	}

	d.metrics.ObserveTool(call.Name, kind, res.Success, res.Duration.Seconds())
	if !res.Success {
		d.metrics.ObserveToolError(call.Name, string(res.ErrorType))
	}
	d.logger.Debug("tool dispatched",
		"tool", call.Name,
		"kind", kind,
		"success", res.Success,
		"denied", res.Denied,
		"error_type", string(res.ErrorType),
		"output", logPreview(res.Output),
		"duration", res.Duration,
	)
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) (Result, string) {
	if d.remote != nil {
		if fullName, ok := d.remote.Resolve(call.Name, call.Arguments); ok {
			return d.runRemote(ctx, call, fullName), "remote"
		}
	}

	if def, ok := d.custom[call.Name]; ok {
		if denied := d.requestApproval(ctx, call, def); denied != nil {
			return *denied, string(def.Kind)
		}
		switch def.Kind {
		case config.KindShell:
			return d.runShell(ctx, def, call), "shell"
		case config.KindHTTP:
			return d.runHTTP(ctx, def, call), "http"
		case config.KindBuiltin:
			return d.runBuiltinDelegate(ctx, def, call), "builtin"
		default:
			return Result{
				Error:     fmt.Sprintf("unknown execution type %q for tool %q", def.Kind, call.Name),
				ErrorType: ToolErrorInvalidInput,
			}, "unknown"
		}
	}

	if tool, ok := d.registry.Get(call.Name); ok {
		return d.runBuiltin(ctx, tool, call), "builtin"
	}

	return Result{
		Error:     fmt.Sprintf("unknown tool %q", call.Name),
		ErrorType: ToolErrorNotFound,
	}, "unknown"
}

// logPreview makes tool output safe for logs: credentials scrubbed,
// long output truncated.
func logPreview(s string) string {
	s = observability.ScrubCredentials(s)
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}

// requestApproval asks the permission gate for gated tools. It returns
// a denied Result when the request was rejected, nil when execution may
// proceed.
func (d *Dispatcher) requestApproval(ctx context.Context, call Call, def config.ToolDef) *Result {
	if d.gate == nil || !def.Gated() || call.Confirmed {
		return nil
	}

	req := permission.Request{
		Type:      string(def.Kind),
		Title:     fmt.Sprintf("Run tool %q", def.Name),
		Patterns:  []string{string(def.Kind) + ":" + def.Name},
		SessionID: call.SessionID,
		MessageID: call.MessageID,
		CallID:    call.ID,
		Metadata:  map[string]any{"tool": def.Name},
	}
	if def.Kind == config.KindShell {
		command := Interpolate(def.Command, call.Arguments)
		req.Title = fmt.Sprintf("Run command: %s", command)
		req.Patterns = shellPatterns(command)
		req.Metadata["command"] = command
	}

	err := d.gate.Ask(ctx, req)
	if err == nil {
		return nil
	}
	if rej, ok := permission.AsRejected(err); ok {
		reason := rej.Reason
		if reason == "" {
			reason = "rejected by user"
		}
		return &Result{
			Denied:    true,
			Error:     fmt.Sprintf("permission denied for %q: %s", def.Name, reason),
			ErrorType: ToolErrorPermission,
		}
	}
	// Context cancellation while waiting on the gate.
	return &Result{
		Error:     fmt.Sprintf("permission request for %q interrupted: %v", def.Name, err),
		ErrorType: ToolErrorExecution,
	}
}

func (d *Dispatcher) runRemote(ctx context.Context, call Call, fullName string) Result {
	output, err := d.remote.Call(ctx, fullName, call.Arguments)
	if err != nil {
		return Result{Output: output, Error: err.Error(), ErrorType: Classify(err)}
	}
	return Result{Success: true, Output: output}
}

func (d *Dispatcher) runBuiltin(ctx context.Context, tool Tool, call Call) Result {
	output, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		return Result{Output: output, Error: err.Error(), ErrorType: Classify(err)}
	}
	return Result{Success: true, Output: output}
}
