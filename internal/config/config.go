// Package config loads delegation settings and custom tool
// definitions from YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ExecutionKind tags how a custom tool runs.
type ExecutionKind string

const (
	// KindShell runs a command template in a subprocess.
	KindShell ExecutionKind = "shell"
	// KindHTTP issues an HTTP request from URL/body templates.
	KindHTTP ExecutionKind = "http"
	// KindBuiltin delegates to a registered in-process tool after
	// renaming arguments.
	KindBuiltin ExecutionKind = "builtin"
)

// ToolDef declares one custom tool. Command, URL, and Body are
// templates with {{param}} placeholders filled from the model's
// arguments at dispatch time.
type ToolDef struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Kind        ExecutionKind `yaml:"kind"`

	// Shell execution.
	Command    string            `yaml:"command,omitempty"`
	WorkingDir string            `yaml:"working_dir,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`

	// HTTP execution.
	URL     string            `yaml:"url,omitempty"`
	Method  string            `yaml:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`

	// Builtin delegation.
	Target string            `yaml:"target,omitempty"`
	ArgMap map[string]string `yaml:"arg_map,omitempty"`

	// Parameters is the JSON schema the model sees for this tool.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// RequireApproval overrides the per-kind default gating (shell
	// tools are gated unless disabled; http and builtin are not
	// unless enabled).
	RequireApproval *bool `yaml:"require_approval,omitempty"`
}

// Gated reports whether dispatching this tool goes through the
// permission gate.
func (d ToolDef) Gated() bool {
	if d.RequireApproval != nil {
		return *d.RequireApproval
	}
	return d.Kind == KindShell
}

// Timeout returns the per-tool execution timeout.
func (d ToolDef) Timeout() time.Duration {
	if d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// SchemaJSON returns the parameter schema as JSON, defaulting to an
// empty object schema.
func (d ToolDef) SchemaJSON() json.RawMessage {
	if len(d.Parameters) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	payload, err := json.Marshal(d.Parameters)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return payload
}

// Config is the root configuration document.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`

	MaxToolCalls   int  `yaml:"max_tool_calls,omitempty"`
	TimeoutSeconds int  `yaml:"timeout_seconds,omitempty"`
	AbortOnReject  bool `yaml:"abort_on_reject,omitempty"`

	Log struct {
		Level  string `yaml:"level,omitempty"`
		Format string `yaml:"format,omitempty"`
	} `yaml:"log,omitempty"`

	Tools []ToolDef `yaml:"tools,omitempty"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks tool definitions: required fields per execution
// kind, unique names, and well-formed parameter schemas.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Tools))
	for i, def := range c.Tools {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return fmt.Errorf("config: tool %d: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("config: duplicate tool name %q", name)
		}
		seen[name] = true

		switch def.Kind {
		case KindShell:
			if strings.TrimSpace(def.Command) == "" {
				return fmt.Errorf("config: tool %q: shell tools need a command", name)
			}
		case KindHTTP:
			if strings.TrimSpace(def.URL) == "" {
				return fmt.Errorf("config: tool %q: http tools need a url", name)
			}
		case KindBuiltin:
			if strings.TrimSpace(def.Target) == "" {
				return fmt.Errorf("config: tool %q: builtin tools need a target", name)
			}
		default:
			return fmt.Errorf("config: tool %q: unknown execution kind %q", name, def.Kind)
		}

		if err := validateSchema(name, def.SchemaJSON()); err != nil {
			return err
		}
	}
	return nil
}

func validateSchema(toolName string, schema json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool.json", strings.NewReader(string(schema))); err != nil {
		return fmt.Errorf("config: tool %q: invalid parameter schema: %w", toolName, err)
	}
	if _, err := compiler.Compile("tool.json"); err != nil {
		return fmt.Errorf("config: tool %q: invalid parameter schema: %w", toolName, err)
	}
	return nil
}
