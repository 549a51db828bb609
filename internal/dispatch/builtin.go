package dispatch

import (
	"context"
	"fmt"

	"github.com/haasonsaas/delegate/internal/config"
)

// runBuiltinDelegate renames arguments per the tool's declared mapping
// and invokes the target registry tool.
func (d *Dispatcher) runBuiltinDelegate(ctx context.Context, def config.ToolDef, call Call) Result {
	target, ok := d.registry.Get(def.Target)
	if !ok {
		return Result{
			Error:     fmt.Sprintf("tool %q: delegate target %q is not registered", def.Name, def.Target),
			ErrorType: ToolErrorNotFound,
		}
	}

	args := make(map[string]any, len(call.Arguments))
	for k, v := range call.Arguments {
		if mapped, renamed := def.ArgMap[k]; renamed {
			args[mapped] = v
			continue
		}
		args[k] = v
	}

	output, err := target.Execute(ctx, args)
	if err != nil {
		return Result{Output: output, Error: err.Error(), ErrorType: Classify(err)}
	}
	return Result{Success: true, Output: output}
}
