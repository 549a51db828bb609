package dispatch

import "testing"

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     map[string]any
		want     string
	}{
		{
			"simple substitution",
			"echo {{msg}}",
			map[string]any{"msg": "hi"},
			"echo hi",
		},
		{
			"missing parameter becomes empty",
			"echo {{msg}} {{other}}",
			map[string]any{"msg": "hi"},
			"echo hi ",
		},
		{
			"whitespace inside braces",
			"echo {{ msg }}",
			map[string]any{"msg": "hi"},
			"echo hi",
		},
		{
			"no escaping by default",
			"echo {{msg}}",
			map[string]any{"msg": "hi; rm -rf /"},
			"echo hi; rm -rf /",
		},
		{
			"explicit escape form",
			"echo {{esc:msg}}",
			map[string]any{"msg": "it's here"},
			`echo 'it'\''s here'`,
		},
		{
			"integer argument",
			"sleep {{seconds}}",
			map[string]any{"seconds": float64(5)},
			"sleep 5",
		},
		{
			"bool argument",
			"run --force={{force}}",
			map[string]any{"force": true},
			"run --force=true",
		},
		{
			"nil args",
			"echo {{msg}}",
			nil,
			"echo ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.template, tt.args); got != tt.want {
				t.Errorf("Interpolate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeArg(t *testing.T) {
	if got := EscapeArg("plain"); got != "'plain'" {
		t.Errorf("EscapeArg(plain) = %q", got)
	}
	if got := EscapeArg("a'b"); got != `'a'\''b'` {
		t.Errorf("EscapeArg(a'b) = %q", got)
	}
}
