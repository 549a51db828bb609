package agent

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/delegate/internal/dispatch"
	"github.com/haasonsaas/delegate/pkg/models"
)

// ledger holds the ordered steps of one delegation and publishes their
// lifecycle to the observer. It is owned by a single loop goroutine
// and needs no locking.
type ledger struct {
	steps    []*models.AgentStep
	observer Observer
}

func newLedger(observer Observer) *ledger {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ledger{observer: observer}
}

// start records a new step for a tool call, with any thinking text
// that preceded it, and emits the start notification.
func (l *ledger) start(call models.ToolCall, thinking string) *models.AgentStep {
	step := &models.AgentStep{
		ID:         uuid.NewString(),
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Arguments:  call.Arguments(),
		Thinking:   strings.TrimSpace(thinking),
		Timestamp:  time.Now(),
	}
	l.steps = append(l.steps, step)
	l.observer.StepStarted(*step)
	return step
}

// complete fills the step's outcome from a dispatch result and emits
// the completion notification.
func (l *ledger) complete(step *models.AgentStep, res dispatch.Result) {
	if res.Success {
		step.Status = models.StepSuccess
		step.Result = res.Output
	} else {
		step.Status = models.StepFailed
		step.Error = res.Error
		if res.Output != "" {
			step.Result = res.Output
		}
	}
	l.observer.StepCompleted(*step)
}

// annotateLast attaches summary text to the most recent step. The
// "step annotated" notification is distinct from start/complete so
// observers never see a finished step restart. Returns false when
// there is no step or no text to attach.
func (l *ledger) annotateLast(summary string) bool {
	summary = strings.TrimSpace(summary)
	if summary == "" || len(l.steps) == 0 {
		return false
	}
	last := l.steps[len(l.steps)-1]
	last.Summary = summary
	l.observer.StepAnnotated(*last)
	return true
}

func (l *ledger) len() int { return len(l.steps) }

// snapshot copies the steps for the final result.
func (l *ledger) snapshot() []models.AgentStep {
	out := make([]models.AgentStep, len(l.steps))
	for i, s := range l.steps {
		out[i] = *s
	}
	return out
}
