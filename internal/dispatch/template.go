package dispatch

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches {{param}} and {{esc:param}} placeholders.
var placeholderRe = regexp.MustCompile(`\{\{\s*(esc:)?([a-zA-Z0-9_.-]+)\s*\}\}`)

// Interpolate fills {{param}} placeholders in a template from the
// argument map. Missing parameters become empty strings. No shell
// escaping is applied; templates that splice untrusted values into a
// command must use the {{esc:param}} form, which wraps the value with
// EscapeArg.
func Interpolate(template string, args map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		value := stringify(args[groups[2]])
		if groups[1] != "" {
			return EscapeArg(value)
		}
		return value
	})
}

// EscapeArg single-quotes a value for safe use inside a sh command
// line.
func EscapeArg(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".0".
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
