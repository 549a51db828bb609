package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	orig := configPath
	defer func() { configPath = orig }()
	configPath = filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := loadConfig(false)
	if err != nil {
		t.Fatalf("default-path miss should fall back to empty config: %v", err)
	}
	if cfg == nil || len(cfg.Tools) != 0 {
		t.Errorf("cfg = %+v, want empty", cfg)
	}

	if _, err := loadConfig(true); err == nil {
		t.Error("explicit --config pointing at a missing file should error")
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	orig := configPath
	defer func() { configPath = orig }()

	configPath = filepath.Join(t.TempDir(), "delegate.yaml")
	raw := []byte("provider: anthropic\ntools:\n  - name: greet\n    kind: shell\n    command: echo hello\n")
	if err := os.WriteFile(configPath, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(true)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Provider != "anthropic" || len(cfg.Tools) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}
