package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(`
provider: anthropic
model: claude-sonnet-4-5
max_tool_calls: 10
tools:
  - name: deploy
    description: Deploy a service
    kind: shell
    command: "deploy.sh {{service}}"
    timeout_seconds: 120
    parameters:
      type: object
      properties:
        service:
          type: string
      required: [service]
  - name: weather
    kind: http
    url: "https://api.example.com/weather?q={{city}}"
  - name: quick_search
    kind: builtin
    target: search
    arg_map:
      q: query
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if len(cfg.Tools) != 3 {
		t.Fatalf("tools = %d, want 3", len(cfg.Tools))
	}
	if got := cfg.Tools[0].Timeout(); got != 120*time.Second {
		t.Errorf("deploy timeout = %v", got)
	}
	if got := cfg.Tools[1].Timeout(); got != 30*time.Second {
		t.Errorf("default timeout = %v", got)
	}
	if cfg.Tools[2].ArgMap["q"] != "query" {
		t.Errorf("arg_map = %v", cfg.Tools[2].ArgMap)
	}
}

func TestGatedDefaults(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		def  ToolDef
		want bool
	}{
		{"shell default", ToolDef{Kind: KindShell}, true},
		{"http default", ToolDef{Kind: KindHTTP}, false},
		{"builtin default", ToolDef{Kind: KindBuiltin}, false},
		{"shell override off", ToolDef{Kind: KindShell, RequireApproval: &no}, false},
		{"http override on", ToolDef{Kind: KindHTTP, RequireApproval: &yes}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.def.Gated(); got != tt.want {
				t.Errorf("Gated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"unknown kind",
			"tools:\n  - name: x\n    kind: graphql\n",
			`unknown execution kind "graphql"`,
		},
		{
			"shell without command",
			"tools:\n  - name: x\n    kind: shell\n",
			"need a command",
		},
		{
			"http without url",
			"tools:\n  - name: x\n    kind: http\n",
			"need a url",
		},
		{
			"builtin without target",
			"tools:\n  - name: x\n    kind: builtin\n",
			"need a target",
		},
		{
			"duplicate names",
			"tools:\n  - name: x\n    kind: http\n    url: u\n  - name: x\n    kind: http\n    url: u\n",
			"duplicate tool name",
		},
		{
			"missing name",
			"tools:\n  - kind: http\n    url: u\n",
			"name is required",
		},
		{
			"bad schema",
			"tools:\n  - name: x\n    kind: http\n    url: u\n    parameters:\n      type: 7\n",
			"invalid parameter schema",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaJSONDefault(t *testing.T) {
	def := ToolDef{Name: "x", Kind: KindHTTP, URL: "u"}
	got := string(def.SchemaJSON())
	if !strings.Contains(got, `"type":"object"`) {
		t.Errorf("SchemaJSON() = %s", got)
	}
}
