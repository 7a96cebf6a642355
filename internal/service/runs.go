package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// RunStatus represents the state of a batch run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStore persists batch runs. *db.Client implements it.
type RunStore interface {
	CreateBatchRun(ctx context.Context, id, location string, documents []string, maxConcurrent int) error
	UpdateRunProgress(ctx context.Context, id string, progress int) error
	CompleteRun(ctx context.Context, id string, results []models.DocumentResult, errMsg string) error
}

// Run tracks one batch run.
type Run struct {
	ID            string
	Status        RunStatus
	Location      string
	Documents     []string
	MaxConcurrent int
	Progress      int
	Total         int
	Completed     int
	Failed        int
	Results       []models.DocumentResult
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time

	mu                 sync.RWMutex
	lastProgressUpdate time.Time // For debouncing DB writes
	progress           *progressWriter
}

// RunManager tracks batch runs and mirrors them to a RunStore when one is set.
type RunManager struct {
	runs  map[string]*Run
	mu    sync.RWMutex
	store RunStore
}

// NewRunManager creates a run manager. store may be nil.
func NewRunManager(store RunStore) *RunManager {
	return &RunManager{
		runs:  make(map[string]*Run),
		store: store,
	}
}

// Start creates a pending run with persistence.
func (m *RunManager) Start(ctx context.Context, location string, documents []string, maxConcurrent int) (*Run, error) {
	run := &Run{
		ID:            uuid.New().String()[:8], // Short ID for convenience
		Status:        RunStatusPending,
		Location:      location,
		Documents:     documents,
		MaxConcurrent: maxConcurrent,
		Total:         len(documents),
		StartedAt:     time.Now(),
	}

	if m.store != nil {
		if err := m.store.CreateBatchRun(ctx, run.ID, location, documents, maxConcurrent); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	slog.Info("run created", "run_id", run.ID, "location", location, "documents", len(documents), "max_concurrent", maxConcurrent)
	return run, nil
}

// Get retrieves a run by ID.
func (m *RunManager) Get(id string) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[id]
}

// Observer returns a pipeline observer that advances run progress. Progress
// is written by a background writer so the orchestrator never waits on the
// store; its context is detached from ctx's cancellation so a cancelled batch
// still records how far it got. Complete or Fail stops the writer.
func (m *RunManager) Observer(ctx context.Context, run *Run) pipeline.Observer {
	if m.store != nil {
		run.mu.Lock()
		if run.progress == nil {
			run.progress = newProgressWriter(context.WithoutCancel(ctx), m.store, run.ID)
		}
		run.mu.Unlock()
	}
	return &runObserver{run: run}
}

type runObserver struct {
	pipeline.NopObserver
	run *Run
}

func (o *runObserver) DocumentFinished(_ string, outcome pipeline.Outcome) {
	o.run.advance(outcome.OK())
}

// advance counts one finished document with debounced DB persistence.
func (r *Run) advance(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress++
	if ok {
		r.Completed++
	} else {
		r.Failed++
	}
	if r.Status == RunStatusPending {
		r.Status = RunStatusRunning
	}
	current, total := r.Progress, r.Total

	// Debounce DB updates - only persist every 5 seconds or every 10 documents
	shouldPersist := r.progress != nil && (time.Since(r.lastProgressUpdate) > 5*time.Second ||
		current%10 == 0 || current == total)
	if shouldPersist {
		r.lastProgressUpdate = time.Now()
		// Posted under r.mu so the writer sees values in increasing order.
		r.progress.post(current)
	}
}

// stopProgress flushes pending progress and waits for the writer to exit.
func (r *Run) stopProgress() {
	r.mu.RLock()
	w := r.progress
	r.mu.RUnlock()
	if w != nil {
		w.close()
	}
}

// progressWriter persists run progress off the observer path. Only the latest
// posted value is kept.
type progressWriter struct {
	ctx   context.Context
	store RunStore
	runID string

	mu      sync.Mutex
	pending int // zero when nothing is waiting

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newProgressWriter(ctx context.Context, store RunStore, runID string) *progressWriter {
	w := &progressWriter{
		ctx:     ctx,
		store:   store,
		runID:   runID,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.loop()
	return w
}

// post records progress and wakes the writer. It never blocks.
func (w *progressWriter) post(progress int) {
	w.mu.Lock()
	w.pending = progress
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *progressWriter) loop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *progressWriter) flush() {
	w.mu.Lock()
	progress := w.pending
	w.pending = 0
	w.mu.Unlock()
	if progress == 0 {
		return
	}
	if err := w.store.UpdateRunProgress(w.ctx, w.runID, progress); err != nil {
		slog.Warn("failed to persist run progress", "run_id", w.runID, "error", err)
	}
}

func (w *progressWriter) close() {
	w.once.Do(func() { close(w.done) })
	<-w.stopped
}

// Complete records the batch report as the run's final result.
func (m *RunManager) Complete(ctx context.Context, run *Run, report *pipeline.Report) {
	results := Results(report)
	completed, failed := report.Counts()
	run.stopProgress()

	run.mu.Lock()
	run.Status = RunStatusCompleted
	run.Results = results
	run.Progress = len(results)
	run.Completed, run.Failed = completed, failed
	now := time.Now()
	run.CompletedAt = &now
	run.mu.Unlock()

	if m.store != nil {
		if err := m.store.CompleteRun(ctx, run.ID, results, ""); err != nil {
			slog.Warn("failed to persist run completion", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("run completed", "run_id", run.ID, "completed", completed, "failed", failed)
}

// Fail marks a run that could not start or finish.
func (m *RunManager) Fail(ctx context.Context, run *Run, err error) {
	run.stopProgress()

	run.mu.Lock()
	run.Status = RunStatusFailed
	run.Error = err.Error()
	now := time.Now()
	run.CompletedAt = &now
	results := slices.Clone(run.Results)
	run.mu.Unlock()

	if m.store != nil {
		if dbErr := m.store.CompleteRun(ctx, run.ID, results, err.Error()); dbErr != nil {
			slog.Warn("failed to persist run failure", "run_id", run.ID, "error", dbErr)
		}
	}

	slog.Error("run failed", "run_id", run.ID, "error", err)
}

// Results flattens a report into per-document rows in input order.
func Results(report *pipeline.Report) []models.DocumentResult {
	docs := report.Documents()
	out := make([]models.DocumentResult, 0, len(docs))
	for _, doc := range docs {
		o, _ := report.Get(doc)
		out = append(out, models.DocumentResult{
			Document: doc,
			Status:   string(o.Status),
			Stage:    o.Stage,
			Reason:   o.Reason,
		})
	}
	return out
}

// Snapshot returns a thread-safe copy of run state.
func (r *Run) Snapshot() Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Run{
		ID:            r.ID,
		Status:        r.Status,
		Location:      r.Location,
		Documents:     r.Documents,
		MaxConcurrent: r.MaxConcurrent,
		Progress:      r.Progress,
		Total:         r.Total,
		Completed:     r.Completed,
		Failed:        r.Failed,
		Results:       slices.Clone(r.Results),
		Error:         r.Error,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}
