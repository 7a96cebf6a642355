package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Status is the terminal state of a document.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome is the final result of one document.
type Outcome struct {
	Status Status
	Stage  string // failing stage, empty when completed
	Reason string
	Err    error
	// Elapsed is the time from admission to the terminal state.
	Elapsed time.Duration
}

// Completed returns a successful outcome.
func Completed() Outcome {
	return Outcome{Status: StatusCompleted}
}

// Failed returns a failed outcome for stage.
func Failed(stage, reason string) Outcome {
	return Outcome{Status: StatusFailed, Stage: stage, Reason: reason}
}

func failedWith(err *StageError) Outcome {
	return Outcome{Status: StatusFailed, Stage: err.Stage, Reason: err.Reason, Err: err}
}

// OK reports whether the document completed.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted
}

func (o Outcome) String() string {
	if o.OK() {
		return string(StatusCompleted)
	}
	return fmt.Sprintf("failed(%s, %s)", o.Stage, o.Reason)
}

// Report maps every document of a batch to its outcome. Entries are write-once;
// the report is read-only after RunBatch returns.
type Report struct {
	mu        sync.RWMutex
	documents []string
	outcomes  map[string]Outcome
	sealed    bool
}

func newReport(documents []string) *Report {
	return &Report{
		documents: append([]string(nil), documents...),
		outcomes:  make(map[string]Outcome, len(documents)),
	}
}

// record stores the outcome for document exactly once.
func (r *Report) record(document string, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("record %s: report is sealed", document)
	}
	if _, ok := r.outcomes[document]; ok {
		return fmt.Errorf("record %s: %w", document, ErrOutcomeRecorded)
	}
	r.outcomes[document] = o
	return nil
}

func (r *Report) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Get returns the outcome recorded for document.
func (r *Report) Get(document string) (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[document]
	return o, ok
}

// Len returns the number of recorded outcomes.
func (r *Report) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outcomes)
}

// Documents returns the batch's documents in submission order.
func (r *Report) Documents() []string {
	return append([]string(nil), r.documents...)
}

// Outcomes returns a copy of all recorded outcomes.
func (r *Report) Outcomes() map[string]Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Outcome, len(r.outcomes))
	for k, v := range r.outcomes {
		out[k] = v
	}
	return out
}

// Counts returns the number of completed and failed documents.
func (r *Report) Counts() (completed, failed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.outcomes {
		if o.OK() {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed
}
