package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/delegate/internal/config"
	"github.com/haasonsaas/delegate/internal/permission"
)

func boolPtr(b bool) *bool { return &b }

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	return New(opts)
}

func TestDispatchScrubsLoggedOutput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&FuncTool{
		ToolName: "leaky",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "api_key=supersecret12345", nil
		},
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := New(Options{Registry: reg, Logger: logger})

	res := d.Dispatch(context.Background(), Call{Name: "leaky"})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	// The model still sees the raw output; only the log is scrubbed.
	if res.Output != "api_key=supersecret12345" {
		t.Errorf("output = %q", res.Output)
	}
	logged := buf.String()
	if strings.Contains(logged, "supersecret12345") {
		t.Errorf("credential leaked into log: %s", logged)
	}
	if !strings.Contains(logged, "[REDACTED]") {
		t.Errorf("log missing redaction marker: %s", logged)
	}
}

func TestShellToolSuccess(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name:            "say",
			Kind:            config.KindShell,
			Command:         "echo {{msg}}",
			RequireApproval: boolPtr(false),
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "say", Arguments: map[string]any{"msg": "hi"}})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "hi") {
		t.Errorf("output = %q, want it to contain %q", res.Output, "hi")
	}
}

func TestShellToolNonzeroExit(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name:            "fail",
			Kind:            config.KindShell,
			Command:         "echo partial; exit 3",
			RequireApproval: boolPtr(false),
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "fail"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "exit code 3") {
		t.Errorf("error = %q, want exit code 3", res.Error)
	}
	if !strings.Contains(res.Output, "partial") {
		t.Errorf("output = %q, want captured partial output", res.Output)
	}
}

func TestShellToolTimeout(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name:            "slow",
			Kind:            config.KindShell,
			Command:         "echo started; sleep 10",
			TimeoutSeconds:  1,
			RequireApproval: boolPtr(false),
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "slow"})
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q, want timeout", res.Error)
	}
}

func TestShellToolCancellation(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name:            "slow",
			Kind:            config.KindShell,
			Command:         "sleep 10",
			RequireApproval: boolPtr(false),
		}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	res := d.Dispatch(ctx, Call{Name: "slow"})
	if res.Success {
		t.Fatal("expected cancellation failure")
	}
	if !strings.Contains(res.Error, "cancelled") {
		t.Errorf("error = %q, want cancelled", res.Error)
	}
}

func TestHTTPToolSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "tokyo" {
			t.Errorf("query q = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"temp":21}`))
	}))
	defer srv.Close()

	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name: "weather",
			Kind: config.KindHTTP,
			URL:  srv.URL + "?q={{city}}",
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "weather", Arguments: map[string]any{"city": "tokyo"}})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, `"temp": 21`) {
		t.Errorf("output = %q, want pretty-printed JSON", res.Output)
	}
}

func TestHTTPToolServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("backend exploded"))
	}))
	defer srv.Close()

	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{Name: "api", Kind: config.KindHTTP, URL: srv.URL}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "api"})
	if res.Success {
		t.Fatal("expected failure for 500 response")
	}
	if !strings.Contains(res.Error, "500") {
		t.Errorf("error = %q, want it to contain 500", res.Error)
	}
	if !strings.Contains(res.Output, "backend exploded") {
		t.Errorf("output = %q, want response body preserved", res.Output)
	}
}

func TestHTTPToolDefaultsJSONContentType(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{
			Name: "notify",
			Kind: config.KindHTTP,
			URL:  srv.URL,
			Body: `{"text":"{{text}}"}`,
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "notify", Arguments: map[string]any{"text": "done"}})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotBody != `{"text":"done"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestBuiltinDelegateRemapsArguments(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&FuncTool{
		ToolName: "search",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if query != "golang" {
				t.Errorf("query = %q, want remapped value", query)
			}
			return "results for " + query, nil
		},
	})

	d := newTestDispatcher(t, Options{
		Registry: registry,
		Custom: []config.ToolDef{{
			Name:   "quick_search",
			Kind:   config.KindBuiltin,
			Target: "search",
			ArgMap: map[string]string{"q": "query"},
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "quick_search", Arguments: map[string]any{"q": "golang"}})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if res.Output != "results for golang" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestBuiltinDelegateMissingTarget(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{Name: "x", Kind: config.KindBuiltin, Target: "nope"}},
	})
	res := d.Dispatch(context.Background(), Call{Name: "x"})
	if res.Success || !strings.Contains(res.Error, "not registered") {
		t.Errorf("result = %+v", res)
	}
}

func TestRegistryToolErrorBecomesFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&FuncTool{
		ToolName: "broken",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("boom")
		},
	})
	d := newTestDispatcher(t, Options{Registry: registry})

	res := d.Dispatch(context.Background(), Call{Name: "broken"})
	if res.Success || res.Error != "boom" {
		t.Errorf("result = %+v", res)
	}
}

func TestUnknownExecutionKind(t *testing.T) {
	d := newTestDispatcher(t, Options{
		Custom: []config.ToolDef{{Name: "odd", Kind: "graphql"}},
	})
	res := d.Dispatch(context.Background(), Call{Name: "odd"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, `unknown execution type "graphql"`) {
		t.Errorf("error = %q, want it to name the kind", res.Error)
	}
}

func TestUnknownTool(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	res := d.Dispatch(context.Background(), Call{Name: "ghost"})
	if res.Success || !strings.Contains(res.Error, `unknown tool "ghost"`) {
		t.Errorf("result = %+v", res)
	}
}

func TestGatedShellRejection(t *testing.T) {
	gate := permission.NewGate()
	gate.Subscribe(permission.ObserverFunc(func(info permission.Info) {
		go gate.Respond(info.SessionID, info.ID, permission.ResponseReject)
	}))

	d := newTestDispatcher(t, Options{
		Gate: gate,
		Custom: []config.ToolDef{{
			Name:    "deploy",
			Kind:    config.KindShell,
			Command: "deploy.sh {{env}}",
		}},
	})

	res := d.Dispatch(context.Background(), Call{
		ID:        "call-1",
		Name:      "deploy",
		Arguments: map[string]any{"env": "prod"},
		SessionID: "sess",
	})
	if res.Success {
		t.Fatal("expected denial")
	}
	if !res.Denied {
		t.Error("Denied flag not set")
	}
	if !strings.Contains(res.Error, "permission denied") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestGatedShellApproval(t *testing.T) {
	gate := permission.NewGate()
	gate.Subscribe(permission.ObserverFunc(func(info permission.Info) {
		if len(info.Patterns) != 1 || info.Patterns[0] != "shell:echo" {
			t.Errorf("patterns = %v, want [shell:echo]", info.Patterns)
		}
		go gate.Respond(info.SessionID, info.ID, permission.ResponseOnce)
	}))

	d := newTestDispatcher(t, Options{
		Gate: gate,
		Custom: []config.ToolDef{{
			Name:    "say",
			Kind:    config.KindShell,
			Command: "echo {{msg}}",
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "say", Arguments: map[string]any{"msg": "ok"}, SessionID: "sess"})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
}

func TestConfirmedCallSkipsGate(t *testing.T) {
	gate := permission.NewGate()
	asked := false
	gate.Subscribe(permission.ObserverFunc(func(info permission.Info) {
		asked = true
		go gate.Respond(info.SessionID, info.ID, permission.ResponseReject)
	}))

	d := newTestDispatcher(t, Options{
		Gate: gate,
		Custom: []config.ToolDef{{
			Name:    "say",
			Kind:    config.KindShell,
			Command: "echo ok",
		}},
	})

	res := d.Dispatch(context.Background(), Call{Name: "say", SessionID: "sess", Confirmed: true})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Error)
	}
	if asked {
		t.Error("gate was consulted despite pre-confirmation")
	}
}

func TestDefinitionsUnion(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&FuncTool{ToolName: "search", Handler: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }})

	d := newTestDispatcher(t, Options{
		Registry: registry,
		Custom:   []config.ToolDef{{Name: "say", Kind: config.KindShell, Command: "echo"}},
	})

	defs := d.Definitions()
	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		names[def.Name] = true
	}
	if !names["search"] || !names["say"] {
		t.Errorf("definitions = %v", names)
	}
}
