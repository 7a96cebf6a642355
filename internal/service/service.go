// Package service wires the conversion, classification, resolution and
// persistence stages to their external collaborators.
package service

import (
	"context"
	"log/slog"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/resolve"
)

// SourceReader returns the raw bytes of a source document.
type SourceReader interface {
	Read(ctx context.Context, document string) ([]byte, error)
}

// Classifier labels a batch of terms. The mapping may omit terms.
type Classifier interface {
	Classify(ctx context.Context, terms []string) (map[string]string, error)
}

// GraphStore hands out sessions for persisting document graphs.
type GraphStore interface {
	Acquire(ctx context.Context) (db.Session, error)
}

// Deps are the collaborators and settings shared by the four stages.
type Deps struct {
	Source     SourceReader
	Classifier Classifier
	Resolver   resolve.Resolver
	Store      GraphStore
	// Retry falls back to pipeline.DefaultRetryPolicy when MaxAttempts is zero.
	Retry pipeline.RetryPolicy
	// BatchSize caps the terms sent in one classification request.
	BatchSize int
	Logger    *slog.Logger
}

// Stages returns conversion, classification, resolution and persistence in
// pipeline order.
func Stages(d Deps) []pipeline.Stage {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Retry.MaxAttempts == 0 {
		d.Retry = pipeline.DefaultRetryPolicy()
	}
	return []pipeline.Stage{
		&ConversionStage{Source: d.Source, Retry: d.Retry},
		&ClassificationStage{Classifier: d.Classifier, Retry: d.Retry, BatchSize: d.BatchSize, Logger: logger},
		&ResolutionStage{Resolver: d.Resolver, Retry: d.Retry, Logger: logger},
		&PersistenceStage{Store: d.Store, Retry: d.Retry, Logger: logger},
	}
}

func requireRecord(state *pipeline.State, stage string) error {
	if state == nil || state.Record == nil {
		return &pipeline.StageError{Stage: stage, Reason: "no record from previous stage"}
	}
	return nil
}
