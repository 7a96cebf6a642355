package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// PersistenceStage writes a finished record's graph fragment in one
// transaction. A session is held only while an attempt is in flight.
type PersistenceStage struct {
	Store  GraphStore
	Retry  pipeline.RetryPolicy
	Logger *slog.Logger
}

// Name implements pipeline.Stage.
func (s *PersistenceStage) Name() string { return pipeline.StagePersistence }

// Run implements pipeline.Stage.
func (s *PersistenceStage) Run(ctx context.Context, document string, state *pipeline.State) (*pipeline.State, error) {
	if err := requireRecord(state, s.Name()); err != nil {
		return nil, err
	}
	frag := models.BuildGraph(state.Record)

	var writeErr error
	err := s.Retry.Do(ctx, "persist", func(ctx context.Context) error {
		writeErr = nil
		sess, err := s.Store.Acquire(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()
		writeErr = sess.WriteFragment(ctx, frag)
		return persistError(writeErr)
	})
	if err != nil {
		// A duplicate key that survives every retry fails only this document.
		if errors.Is(writeErr, db.ErrEntityAlreadyExists) && errors.Is(err, pipeline.ErrCapabilityOutage) {
			return nil, fmt.Errorf("persist: %w", writeErr)
		}
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Debug("fragment persisted", "document", document, "nodes", len(frag.Nodes), "edges", len(frag.Edges))
	}
	return &pipeline.State{Document: document, Record: state.Record, Final: true}, nil
}

// persistError maps store errors onto the retry policy. Writes delete the
// document's edges before recreating them, so a duplicate key can only come
// from a racing attempt and the next attempt converges on the same state.
func persistError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrEntityAlreadyExists),
		errors.Is(err, db.ErrTransactionConflict),
		errors.Is(err, db.ErrUnavailable):
		return pipeline.Transient(err)
	default:
		return err
	}
}
