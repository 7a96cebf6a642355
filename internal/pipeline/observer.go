package pipeline

import "time"

// Observer receives lifecycle events from the orchestrator. Methods are called
// concurrently from document tasks and must not block.
type Observer interface {
	DocumentAdmitted(document string)
	StageStarted(document, stage string)
	StageFinished(document, stage string, elapsed time.Duration, err error)
	DocumentFinished(document string, outcome Outcome)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) DocumentAdmitted(string) {}
func (NopObserver) StageStarted(string, string) {}
func (NopObserver) StageFinished(string, string, time.Duration, error) {}
func (NopObserver) DocumentFinished(string, Outcome) {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) DocumentAdmitted(document string) {
	for _, o := range obs {
		o.DocumentAdmitted(document)
	}
}

func (obs Observers) StageStarted(document, stage string) {
	for _, o := range obs {
		o.StageStarted(document, stage)
	}
}

func (obs Observers) StageFinished(document, stage string, elapsed time.Duration, err error) {
	for _, o := range obs {
		o.StageFinished(document, stage, elapsed, err)
	}
}

func (obs Observers) DocumentFinished(document string, outcome Outcome) {
	for _, o := range obs {
		o.DocumentFinished(document, outcome)
	}
}
