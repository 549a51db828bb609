package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/haasonsaas/delegate/pkg/models"
)

// fallbackSummary is used when the model produced no usable narrative,
// so callers never receive an empty summary.
const fallbackSummary = "completed without output"

// buildResult assembles the final AgentResult from the ledger, the
// trailing narrative text, and the executed shell commands.
func buildResult(status models.RunStatus, steps []models.AgentStep, finalText string, commands []string, toolCalls int, started time.Time) *models.AgentResult {
	failedSteps := 0
	var errs []string
	for _, step := range steps {
		if step.Status == models.StepFailed {
			failedSteps++
			msg := step.Error
			if msg == "" {
				msg = "failed"
			}
			errs = append(errs, fmt.Sprintf("%s: %s", step.ToolName, msg))
		}
	}

	// A delegation fails only when it ran steps and every one failed.
	// Zero steps with some narrative is a legitimate no-tools answer.
	success := !(len(steps) > 0 && failedSteps == len(steps))
	if status == models.RunFailed {
		success = false
	}
	if !success && status == models.RunDone {
		status = models.RunFailed
	}

	summary := strings.TrimSpace(finalText)
	if summary == "" {
		if n := len(steps); n > 0 && steps[n-1].Summary != "" {
			summary = steps[n-1].Summary
		}
	}
	if summary == "" {
		summary = fallbackSummary
	}

	return &models.AgentResult{
		Success:       success,
		Status:        status,
		Summary:       summary,
		Details:       buildDetails(steps, finalText),
		ModifiedFiles: modifiedFiles(commands),
		Errors:        errs,
		ToolCallCount: toolCalls,
		Duration:      time.Since(started),
		Steps:         steps,
	}
}

// buildDetails renders the step ledger as a readable log.
func buildDetails(steps []models.AgentStep, finalText string) string {
	var b strings.Builder
	for i, step := range steps {
		if step.Thinking != "" {
			b.WriteString(step.Thinking)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, step.ToolName, step.Status)
		if step.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", step.Error)
		}
		if step.Summary != "" {
			b.WriteString(step.Summary)
			b.WriteString("\n")
		}
	}
	// Trailing text that already became the last step's summary was
	// printed above; appending it again would duplicate the paragraph.
	if text := strings.TrimSpace(finalText); text != "" {
		if n := len(steps); n == 0 || steps[n-1].Summary != text {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Commands whose positional arguments name files they create or
// change.
var mutatingCommands = map[string]bool{
	"touch":    true,
	"cp":       true,
	"mv":       true,
	"rm":       true,
	"tee":      true,
	"mkdir":    true,
	"truncate": true,
	"install":  true,
}

// modifiedFiles extracts file paths from executed shell commands.
// It tokenizes each command, takes redirection targets and the
// arguments of known file-mutating programs, and reports the
// deduplicated sorted union. The result is approximate: it can both
// miss and over-report paths, so callers must not treat it as
// authoritative.
func modifiedFiles(commands []string) []string {
	seen := make(map[string]bool)
	for _, command := range commands {
		for _, path := range pathsFromCommand(command) {
			seen[path] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// redirectTargetRe finds redirection targets in the raw command text.
// shellwords consumes redirect operators and everything after them, so
// targets must be taken before tokenizing.
var redirectTargetRe = regexp.MustCompile(`>{1,2}\s*(\S+)`)

func pathsFromCommand(command string) []string {
	var paths []string
	for _, m := range redirectTargetRe.FindAllStringSubmatch(command, -1) {
		paths = append(paths, m[1])
	}

	tokens, err := shellwords.Parse(command)
	if err != nil || len(tokens) == 0 {
		return paths
	}
	if mutatingCommands[tokens[0]] {
		for _, tok := range tokens[1:] {
			if strings.HasPrefix(tok, "-") {
				continue
			}
			paths = append(paths, tok)
		}
	}
	return paths
}
