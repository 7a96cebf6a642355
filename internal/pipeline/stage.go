// Package pipeline runs documents through an ordered list of stages under a
// global concurrency cap and collects a per-document Batch Report.
package pipeline

import (
	"context"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// Stage names used in reports.
const (
	StageAdmission      = "admission"
	StageConversion     = "conversion"
	StageClassification = "classification"
	StageResolution     = "resolution"
	StagePersistence    = "persistence"
)

// State is the per-document payload threaded through the stages.
// It is owned by exactly one document task at a time.
type State struct {
	// Document is the identifier the batch was given.
	Document string
	// Record is nil until conversion succeeds.
	Record *models.Record
	// Final is set once persistence has stored the record.
	Final bool
}

// Stage is one ordered transformation step.
//
// Run receives the state produced by the previous stage and returns the state
// for the next one. A non-nil error halts the document. Implementations must
// bound every external call and must not retain state between invocations.
type Stage interface {
	Name() string
	Run(ctx context.Context, document string, state *State) (*State, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, document string, state *State) (*State, error)
}

// Name returns the stage name.
func (f StageFunc) Name() string { return f.StageName }

// Run calls the wrapped function.
func (f StageFunc) Run(ctx context.Context, document string, state *State) (*State, error) {
	return f.Fn(ctx, document, state)
}
