package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the delegation loop: tool
// dispatch outcomes and latency, permission gate activity, LLM request
// latency, and terminal delegation states.
type Metrics struct {
	// ToolExecutions counts tool dispatches.
	// Labels: tool, kind (shell|http|builtin|remote), status (success|error)
	ToolExecutions *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool, kind
	ToolDuration *prometheus.HistogramVec

	// ToolErrors counts failed dispatches by classified error type.
	// Labels: tool, type (not_found|invalid_input|timeout|permission|network|execution|unknown)
	ToolErrors *prometheus.CounterVec

	// PermissionRequests counts permission asks that actually pended
	// (fast-path approvals are not requests).
	// Labels: type
	PermissionRequests *prometheus.CounterVec

	// PermissionDecisions counts external decisions.
	// Labels: response (once|always|reject)
	PermissionDecisions *prometheus.CounterVec

	// LLMRequestDuration measures one streaming completion, first byte
	// to stream end, in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// Delegations counts terminated delegations.
	// Labels: status (done|failed|aborted)
	Delegations *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given
// registerer. Pass prometheus.DefaultRegisterer for the global
// registry, or a private registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delegate_tool_executions_total",
				Help: "Tool dispatches by tool, execution kind, and status.",
			},
			[]string{"tool", "kind", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delegate_tool_duration_seconds",
				Help:    "Tool execution latency.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool", "kind"},
		),
		ToolErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delegate_tool_errors_total",
				Help: "Failed tool dispatches by classified error type.",
			},
			[]string{"tool", "type"},
		),
		PermissionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delegate_permission_requests_total",
				Help: "Permission requests that required an external decision.",
			},
			[]string{"type"},
		),
		PermissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delegate_permission_decisions_total",
				Help: "External permission decisions by response.",
			},
			[]string{"response"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delegate_llm_request_duration_seconds",
				Help:    "Streaming completion latency, request to stream end.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		Delegations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delegate_delegations_total",
				Help: "Terminated delegations by final status.",
			},
			[]string{"status"},
		),
	}
}

// ObserveTool records one tool dispatch outcome.
func (m *Metrics) ObserveTool(tool, kind string, success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ToolExecutions.WithLabelValues(tool, kind, status).Inc()
	m.ToolDuration.WithLabelValues(tool, kind).Observe(seconds)
}

// ObserveToolError records a failed dispatch's classified error type.
func (m *Metrics) ObserveToolError(tool, errType string) {
	if m == nil {
		return
	}
	m.ToolErrors.WithLabelValues(tool, errType).Inc()
}

// ObserveLLM records one streaming completion's latency.
func (m *Metrics) ObserveLLM(provider, model string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
}

// ObserveDelegation records a delegation's terminal status.
func (m *Metrics) ObserveDelegation(status string) {
	if m == nil {
		return
	}
	m.Delegations.WithLabelValues(status).Inc()
}

// ObservePermissionRequest records a permission ask that pended.
func (m *Metrics) ObservePermissionRequest(permType string) {
	if m == nil {
		return
	}
	m.PermissionRequests.WithLabelValues(permType).Inc()
}

// ObservePermissionDecision records an external decision.
func (m *Metrics) ObservePermissionDecision(response string) {
	if m == nil {
		return
	}
	m.PermissionDecisions.WithLabelValues(response).Inc()
}
