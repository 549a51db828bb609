package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeCaller struct {
	lastServer string
	lastTool   string
	lastArgs   map[string]any
	output     string
	err        error
}

func (c *fakeCaller) CallTool(ctx context.Context, serverID, tool string, args map[string]any) (string, error) {
	c.lastServer = serverID
	c.lastTool = tool
	c.lastArgs = args
	return c.output, c.err
}

func newTestProxy(caller Caller) *Proxy {
	p := NewProxy(caller)
	p.RegisterTool(Tool{
		ServerID:    "github",
		Name:        "search",
		Description: "Search GitHub",
		Required:    []string{"repo", "query"},
	})
	p.RegisterTool(Tool{
		ServerID:    "docs",
		Name:        "search",
		Description: "Search documentation",
		Required:    []string{"query"},
	})
	p.RegisterTool(Tool{
		ServerID: "github",
		Name:     "create_issue",
		Required: []string{"repo", "title"},
	})
	return p
}

func TestResolveQualifiedName(t *testing.T) {
	p := newTestProxy(&fakeCaller{})
	full, ok := p.Resolve("mcp:github:search", nil)
	if !ok || full != "mcp:github:search" {
		t.Errorf("Resolve = %q, %v", full, ok)
	}

	// Qualified names are claimed even when unregistered so the
	// failure surfaces from Call, not from a fallthrough executor.
	full, ok = p.Resolve("mcp:gone:tool", nil)
	if !ok || full != "mcp:gone:tool" {
		t.Errorf("Resolve = %q, %v", full, ok)
	}
}

func TestResolveUniqueShortName(t *testing.T) {
	p := newTestProxy(&fakeCaller{})
	full, ok := p.Resolve("create_issue", nil)
	if !ok || full != "mcp:github:create_issue" {
		t.Errorf("Resolve = %q, %v", full, ok)
	}
}

func TestResolveAmbiguousShortNameByArguments(t *testing.T) {
	p := newTestProxy(&fakeCaller{})

	full, ok := p.Resolve("search", map[string]any{"repo": "golang/go", "query": "context"})
	if !ok || full != "mcp:github:search" {
		t.Errorf("Resolve with repo hint = %q, %v", full, ok)
	}

	full, ok = p.Resolve("search", map[string]any{"query": "context"})
	if !ok || full != "mcp:docs:search" {
		t.Errorf("Resolve without repo hint = %q, %v", full, ok)
	}

	// Arguments satisfying both candidates pick the one with more
	// required parameters, not the first in sort order.
	full, ok = p.Resolve("search", map[string]any{"repo": "golang/go", "query": "context", "extra": 1})
	if !ok || full != "mcp:github:search" {
		t.Errorf("Resolve with superset args = %q, %v", full, ok)
	}

	// Nothing satisfied: deterministic sort-order fallback.
	full, ok = p.Resolve("search", map[string]any{"unrelated": true})
	if !ok || full != "mcp:docs:search" {
		t.Errorf("Resolve with unsatisfied args = %q, %v", full, ok)
	}
}

func TestResolveUnknownShortName(t *testing.T) {
	p := newTestProxy(&fakeCaller{})
	if _, ok := p.Resolve("read_file", nil); ok {
		t.Error("unknown short name should not resolve")
	}
}

func TestCallRoutesToServer(t *testing.T) {
	caller := &fakeCaller{output: "3 results"}
	p := newTestProxy(caller)

	out, err := p.Call(context.Background(), "mcp:docs:search", map[string]any{"query": "x"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "3 results" {
		t.Errorf("output = %q", out)
	}
	if caller.lastServer != "docs" || caller.lastTool != "search" {
		t.Errorf("routed to %s/%s", caller.lastServer, caller.lastTool)
	}
}

func TestCallUnknownTool(t *testing.T) {
	p := newTestProxy(&fakeCaller{})
	_, err := p.Call(context.Background(), "mcp:gone:tool", nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("err = %v", err)
	}
}

func TestCallPropagatesServerError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("server unreachable")}
	p := newTestProxy(caller)
	_, err := p.Call(context.Background(), "mcp:github:create_issue", nil)
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("err = %v", err)
	}
}

func TestDefinitionsSortedAndQualified(t *testing.T) {
	p := newTestProxy(&fakeCaller{})
	defs := p.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions = %d, want 3", len(defs))
	}
	want := []string{"mcp:docs:search", "mcp:github:create_issue", "mcp:github:search"}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("defs[%d] = %q, want %q", i, def.Name, want[i])
		}
		if len(def.Schema) == 0 {
			t.Errorf("defs[%d] has empty schema", i)
		}
	}
}
