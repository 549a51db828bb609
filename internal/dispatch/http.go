package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/haasonsaas/delegate/internal/config"
)

// runHTTP interpolates the URL and body templates and issues the
// configured request. Non-2xx responses are failures, but the response
// body is still returned as output so the model can read the error
// payload.
func (d *Dispatcher) runHTTP(ctx context.Context, def config.ToolDef, call Call) Result {
	url := Interpolate(def.URL, call.Arguments)
	body := ""
	if def.Body != "" {
		body = Interpolate(def.Body, call.Arguments)
	}

	method := strings.ToUpper(strings.TrimSpace(def.Method))
	if method == "" {
		method = http.MethodGet
		if body != "" {
			method = http.MethodPost
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, def.Timeout())
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return Result{
			Error:     fmt.Sprintf("tool %q: build request: %v", def.Name, err),
			ErrorType: ToolErrorInvalidInput,
		}
	}
	for k, v := range def.Headers {
		req.Header.Set(k, Interpolate(v, call.Arguments))
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Error: "request cancelled", ErrorType: ToolErrorExecution}
		}
		return Result{Error: fmt.Sprintf("request failed: %v", err), ErrorType: ToolErrorNetwork}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Error: fmt.Sprintf("read response: %v", err), ErrorType: ToolErrorNetwork}
	}
	output := prettyJSON(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			Output:    output,
			Error:     fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			ErrorType: ToolErrorNetwork,
		}
	}
	return Result{Success: true, Output: output}
}

// prettyJSON indents JSON response bodies for readability; anything
// that does not parse comes back unchanged.
func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
