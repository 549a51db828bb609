package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/delegate/internal/observability"
	"github.com/haasonsaas/delegate/internal/permission"
	"github.com/haasonsaas/delegate/pkg/models"
)

// console renders delegation progress to the terminal and reads
// permission decisions from stdin. Writes are serialized so streamed
// text and step lines do not interleave mid-line.
type console struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	inText bool
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

func (c *console) StepStarted(step models.AgentStep) {
	c.line("→ %s", step.ToolName)
}

func (c *console) StepCompleted(step models.AgentStep) {
	if step.Status == models.StepSuccess {
		c.line("✓ %s", step.ToolName)
		return
	}
	c.line("✗ %s: %s", step.ToolName, step.Error)
}

func (c *console) StepAnnotated(step models.AgentStep) {}

func (c *console) TextChunk(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
	c.inText = true
}

func (c *console) Progress(message string) {
	c.line("… %s", message)
}

func (c *console) ErrorMessage(message string) {
	c.line("! %s", message)
}

// line prints one status line, terminating any in-progress streamed
// text first.
func (c *console) line(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inText {
		fmt.Fprintln(c.out)
		c.inText = false
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *console) printResult(result *models.AgentResult) {
	c.line("")
	status := "done"
	if !result.Success {
		status = "failed"
	}
	if result.Status == models.RunAborted {
		status = "aborted"
	}
	c.line("[%s] %s", status, result.Summary)
	if len(result.ModifiedFiles) > 0 {
		c.line("modified files: %s", strings.Join(result.ModifiedFiles, ", "))
	}
	for _, e := range result.Errors {
		c.line("error: %s", e)
	}
	c.line("tool calls: %d, duration: %s", result.ToolCallCount, result.Duration.Round(time.Millisecond))
}

// prompt asks for one permission decision. It blocks on stdin; the
// gate's Ask is suspended until the answer lands.
func (c *console) prompt(info permission.Info) permission.Response {
	c.line("")
	c.line("permission needed: %s", info.Title)
	if len(info.Patterns) > 0 {
		c.line("  pattern: %s", strings.Join(info.Patterns, ", "))
	}

	for {
		c.mu.Lock()
		fmt.Fprint(c.out, "allow? [y]es once / [a]lways / [n]o: ")
		c.mu.Unlock()

		answer, err := c.in.ReadString('\n')
		if err != nil {
			return permission.ResponseReject
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return permission.ResponseOnce
		case "a", "always":
			return permission.ResponseAlways
		case "n", "no":
			return permission.ResponseReject
		}
	}
}

// newConsoleGateObserver wires the gate to the terminal prompt. The
// decision is delivered through Respond before the observer callback
// returns; the pending entry's buffered channel makes that safe.
func newConsoleGateObserver(c *console, gate *permission.Gate, metrics *observability.Metrics) permission.Observer {
	return permission.ObserverFunc(func(info permission.Info) {
		metrics.ObservePermissionRequest(info.Type)
		response := c.prompt(info)
		metrics.ObservePermissionDecision(string(response))
		gate.Respond(info.SessionID, info.ID, response)
	})
}
