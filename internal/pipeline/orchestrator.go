package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config controls admission for a batch run.
type Config struct {
	// MaxConcurrent is the number of concurrency tokens. Must be >= 1.
	MaxConcurrent int
	// OutageCooldown pauses new admissions after a stage fails with
	// ErrCapabilityOutage. Zero disables the pause.
	OutageCooldown time.Duration
	Logger         *slog.Logger
	Observer       Observer
}

// Orchestrator drives documents through an ordered stage list.
type Orchestrator struct {
	cfg      Config
	stages   []Stage
	logger   *slog.Logger
	observer Observer

	mu          sync.Mutex
	pausedUntil time.Time
}

// New creates an orchestrator for the given stages, run in the given order.
func New(cfg Config, stages ...Stage) (*Orchestrator, error) {
	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent must be at least 1, got %d", cfg.MaxConcurrent)
	}
	if len(stages) == 0 {
		return nil, errors.New("at least one stage is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Orchestrator{
		cfg:      cfg,
		stages:   stages,
		logger:   logger.With("component", "orchestrator"),
		observer: observer,
	}, nil
}

// RunBatch runs a batch with default settings.
func RunBatch(ctx context.Context, documents []string, maxConcurrent int, stages ...Stage) (*Report, error) {
	o, err := New(Config{MaxConcurrent: maxConcurrent}, stages...)
	if err != nil {
		return nil, err
	}
	return o.RunBatch(ctx, documents)
}

// RunBatch admits documents in input order, at most MaxConcurrent at a time,
// and returns once every document has a terminal outcome.
//
// Cancelling ctx stops admission immediately. Documents never admitted are
// recorded as failed at the admission stage. Admitted documents finish the
// stage they are in and are then recorded as failed at the next stage.
// The error is non-nil only for invalid input.
func (o *Orchestrator) RunBatch(ctx context.Context, documents []string) (*Report, error) {
	seen := make(map[string]struct{}, len(documents))
	for _, d := range documents {
		if _, ok := seen[d]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, d)
		}
		seen[d] = struct{}{}
	}

	report := newReport(documents)
	defer report.seal()

	tokens := semaphore.NewWeighted(int64(o.cfg.MaxConcurrent))
	var g errgroup.Group

	start := time.Now()
	o.logger.Info("batch started", "documents", len(documents), "max_concurrent", o.cfg.MaxConcurrent)

	for i, doc := range documents {
		if err := o.admit(ctx, tokens); err != nil {
			o.logger.Warn("admission stopped", "pending", len(documents)-i, "error", err)
			for _, pending := range documents[i:] {
				o.finish(report, pending, Failed(StageAdmission, ErrBatchCancelled.Error()))
			}
			break
		}

		o.observer.DocumentAdmitted(doc)
		g.Go(func() error {
			defer tokens.Release(1)
			o.runDocument(ctx, report, doc)
			return nil
		})
	}

	_ = g.Wait()

	completed, failed := report.Counts()
	o.logger.Info("batch finished",
		"completed", completed,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds())
	return report, nil
}

// admit takes a concurrency token, then waits out any outage pause while
// holding it.
func (o *Orchestrator) admit(ctx context.Context, tokens *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tokens.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := o.waitForResume(ctx); err != nil {
		tokens.Release(1)
		return err
	}
	return nil
}

func (o *Orchestrator) waitForResume(ctx context.Context) error {
	for {
		o.mu.Lock()
		wait := time.Until(o.pausedUntil)
		o.mu.Unlock()
		if wait <= 0 {
			return ctx.Err()
		}

		o.logger.Info("admissions paused", "resume_in", wait.Round(time.Millisecond))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) pause() {
	if o.cfg.OutageCooldown <= 0 {
		return
	}
	until := time.Now().Add(o.cfg.OutageCooldown)
	o.mu.Lock()
	if until.After(o.pausedUntil) {
		o.pausedUntil = until
	}
	o.mu.Unlock()
}

// runDocument drives one document through every stage. Stages run on a
// context detached from batch cancellation so an in-flight write is never
// interrupted; cancellation is checked between stages.
func (o *Orchestrator) runDocument(ctx context.Context, report *Report, doc string) {
	log := o.logger.With("document", doc)
	start := time.Now()
	stageCtx := context.WithoutCancel(ctx)
	state := &State{Document: doc}

	outcome := Completed()
	for _, st := range o.stages {
		if ctx.Err() != nil {
			outcome = Failed(st.Name(), ErrBatchCancelled.Error())
			break
		}

		next, err := o.runStage(stageCtx, st, doc, state)
		if err != nil {
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				stageErr = &StageError{Stage: st.Name(), Reason: err.Error(), Err: err}
			}
			if errors.Is(err, ErrCapabilityOutage) {
				log.Warn("capability outage, pausing admissions", "stage", st.Name(), "cooldown", o.cfg.OutageCooldown)
				o.pause()
			}
			outcome = failedWith(stageErr)
			break
		}
		state = next
	}

	outcome.Elapsed = time.Since(start)
	if outcome.OK() {
		log.Info("document completed", "duration_ms", outcome.Elapsed.Milliseconds())
	} else {
		log.Warn("document failed", "stage", outcome.Stage, "reason", outcome.Reason)
	}
	o.finish(report, doc, outcome)
}

func (o *Orchestrator) runStage(ctx context.Context, st Stage, doc string, state *State) (next *State, err error) {
	name := st.Name()
	o.observer.StageStarted(doc, name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: name, Reason: fmt.Sprintf("panic: %v", r)}
		}
		o.observer.StageFinished(doc, name, time.Since(start), err)
	}()

	next, err = st.Run(ctx, doc, state)
	if err == nil && next == nil {
		err = &StageError{Stage: name, Reason: "stage returned no state"}
	}
	return next, err
}

func (o *Orchestrator) finish(report *Report, doc string, outcome Outcome) {
	if err := report.record(doc, outcome); err != nil {
		o.logger.Error("failed to record outcome", "document", doc, "error", err)
		return
	}
	o.observer.DocumentFinished(doc, outcome)
}
