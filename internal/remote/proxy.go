// Package remote proxies tool calls to external servers. Remote tools
// are advertised to the model under fully qualified "mcp:<server>:<tool>"
// names; the proxy also resolves bare tool names the model sometimes
// emits instead, disambiguating by the call's argument keys.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/delegate/internal/dispatch"
)

const namePrefix = "mcp:"

// Tool describes one tool exported by a remote server.
type Tool struct {
	ServerID    string
	Name        string
	Description string
	Schema      json.RawMessage
	// Required lists the schema's required property names, used as a
	// disambiguation hint when the model calls a short tool name that
	// several servers export.
	Required []string
}

// FullName returns the qualified name the tool is advertised under.
func (t Tool) FullName() string {
	return namePrefix + t.ServerID + ":" + t.Name
}

// Caller executes one tool call against a remote server.
type Caller interface {
	CallTool(ctx context.Context, serverID, tool string, args map[string]any) (string, error)
}

// Proxy implements dispatch.RemoteProxy over a set of registered
// remote tools.
type Proxy struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	caller Caller
	logger *slog.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the proxy's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProxy creates a proxy that executes calls through the given
// caller.
func NewProxy(caller Caller, opts ...Option) *Proxy {
	p := &Proxy{
		tools:  make(map[string]Tool),
		caller: caller,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterTool adds or replaces a remote tool.
func (p *Proxy) RegisterTool(t Tool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools[t.FullName()] = t
}

// Resolve maps a model-issued name to a fully qualified remote tool
// name. Qualified names route here regardless of registration, so a
// stale name fails inside Call rather than falling through to other
// executors. Short names resolve only when a registered tool matches;
// with several candidates the call's argument keys pick the most
// specific tool whose required parameters they satisfy.
func (p *Proxy) Resolve(name string, args map[string]any) (string, bool) {
	if strings.HasPrefix(name, namePrefix) {
		return name, true
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var candidates []Tool
	for _, t := range p.tools {
		if t.Name == name {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FullName() < candidates[j].FullName()
	})
	if len(candidates) == 1 {
		return candidates[0].FullName(), true
	}

	// Prefer the satisfied candidate with the most required parameters:
	// a tool demanding {repo, query} is a better match for those args
	// than one demanding only {query}. Ties fall to sort order.
	best := -1
	for i, t := range candidates {
		if !hasAllKeys(args, t.Required) {
			continue
		}
		if best == -1 || len(t.Required) > len(candidates[best].Required) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best].FullName(), true
	}
	// Nothing satisfied: pick deterministically and let the server
	// report the argument mismatch.
	return candidates[0].FullName(), true
}

// Call executes a fully qualified remote tool name.
func (p *Proxy) Call(ctx context.Context, fullName string, args map[string]any) (string, error) {
	p.mu.RLock()
	t, ok := p.tools[fullName]
	p.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("remote tool %q is not registered", fullName)
	}

	p.logger.Debug("remote tool call", "server", t.ServerID, "tool", t.Name)
	return p.caller.CallTool(ctx, t.ServerID, t.Name, args)
}

// Definitions returns the registered tools as dispatcher definitions,
// sorted by qualified name.
func (p *Proxy) Definitions() []dispatch.Definition {
	p.mu.RLock()
	defer p.mu.RUnlock()

	defs := make([]dispatch.Definition, 0, len(p.tools))
	for _, t := range p.tools {
		schema := t.Schema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		defs = append(defs, dispatch.Definition{
			Name:        t.FullName(),
			Description: t.Description,
			Schema:      schema,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func hasAllKeys(args map[string]any, required []string) bool {
	for _, k := range required {
		if _, ok := args[k]; !ok {
			return false
		}
	}
	return true
}
