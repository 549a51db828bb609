package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/haasonsaas/delegate/internal/config"
)

// shellPatterns derives the permission match keys for a rendered
// command: the command's first token, so one "always" grant covers the
// whole program rather than a single argument combination.
func shellPatterns(command string) []string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return []string{"shell:"}
	}
	return []string{"shell:" + fields[0]}
}

// runShell interpolates the command template and executes it via
// sh -c under the tool's timeout. Nonzero exit, timeout, and external
// cancellation each produce a distinct failure, always with whatever
// output the process managed to write.
func (d *Dispatcher) runShell(ctx context.Context, def config.ToolDef, call Call) Result {
	command := Interpolate(def.Command, call.Arguments)
	if strings.TrimSpace(command) == "" {
		return Result{
			Error:     fmt.Sprintf("tool %q: empty command after interpolation", def.Name),
			ErrorType: ToolErrorInvalidInput,
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, def.Timeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	if def.WorkingDir != "" {
		cmd.Dir = def.WorkingDir
	}
	cmd.Env = os.Environ()
	for k, v := range def.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if err == nil {
		return Result{Success: true, Output: output, Command: command}
	}

	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return Result{Output: output, Command: command, ErrorType: ToolErrorTimeout, Error: fmt.Sprintf("command timed out after %s", def.Timeout())}
	case ctx.Err() != nil:
		return Result{Output: output, Command: command, ErrorType: ToolErrorExecution, Error: "command cancelled"}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Output: output, Command: command, ErrorType: ToolErrorExecution, Error: fmt.Sprintf("command failed with exit code %d", exitErr.ExitCode())}
		}
		return Result{Output: output, Command: command, ErrorType: ToolErrorExecution, Error: fmt.Sprintf("command failed to start: %v", err)}
	}
}
