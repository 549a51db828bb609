package permission

import "testing"

func TestCovered(t *testing.T) {
	approved := map[string]bool{
		"bash:git *":  true,
		"http":        true,
		"shell:exact": true,
	}

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"exact", "shell:exact", true},
		{"exact type key", "http", true},
		{"wildcard prefix", "bash:git status", true},
		{"wildcard prefix 2", "bash:git push origin main", true},
		{"wildcard boundary", "bash:git", false},
		{"different command", "bash:npm install", false},
		{"no match", "shell:other", false},
		{"empty key", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := covered(approved, tt.key); got != tt.want {
				t.Errorf("covered(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestCoveredAll(t *testing.T) {
	approved := map[string]bool{"a:*": true, "b": true}

	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{"all covered", []string{"a:x", "b"}, true},
		{"one missing", []string{"a:x", "c"}, false},
		{"empty keys", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coveredAll(approved, tt.keys); got != tt.want {
				t.Errorf("coveredAll(%v) = %v, want %v", tt.keys, got, tt.want)
			}
		})
	}
}
