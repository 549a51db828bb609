package agent

import "github.com/haasonsaas/delegate/pkg/models"

// Observer receives delegation progress at the UI boundary. Step
// snapshots are copies; mutating them has no effect on the ledger.
//
// StepAnnotated fires when a completed step's summary is filled in
// retroactively; it never re-emits a start or complete for that step.
type Observer interface {
	StepStarted(step models.AgentStep)
	StepCompleted(step models.AgentStep)
	StepAnnotated(step models.AgentStep)

	TextChunk(text string)
	Progress(message string)
	ErrorMessage(message string)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) StepStarted(models.AgentStep)   {}
func (NopObserver) StepCompleted(models.AgentStep) {}
func (NopObserver) StepAnnotated(models.AgentStep) {}
func (NopObserver) TextChunk(string)               {}
func (NopObserver) Progress(string)                {}
func (NopObserver) ErrorMessage(string)            {}
