package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

type fakeRunStore struct {
	mu       sync.Mutex
	created  []string
	progress []int
	results  []models.DocumentResult
	errMsg   string
	calls    []string
	// release, when set, holds progress writes until it is closed.
	release chan struct{}
}

func (f *fakeRunStore) CreateBatchRun(_ context.Context, id, _ string, _ []string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return nil
}

func (f *fakeRunStore) UpdateRunProgress(_ context.Context, _ string, progress int) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progress)
	f.calls = append(f.calls, "progress")
	return nil
}

func (f *fakeRunStore) CompleteRun(_ context.Context, _ string, results []models.DocumentResult, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
	f.errMsg = errMsg
	f.calls = append(f.calls, "complete")
	return nil
}

func TestRunManager_TracksBatch(t *testing.T) {
	ctx := context.Background()
	store := &fakeRunStore{}
	m := NewRunManager(store)

	docs := []string{"a.xml", "b.xml", "c.xml"}
	run, err := m.Start(ctx, "data/xml", docs, 2)
	require.NoError(t, err)
	assert.Len(t, run.ID, 8)
	assert.Equal(t, []string{run.ID}, store.created)
	assert.Same(t, run, m.Get(run.ID))

	fail := pipeline.StageFunc{StageName: pipeline.StageConversion, Fn: func(_ context.Context, doc string, s *pipeline.State) (*pipeline.State, error) {
		if doc == "b.xml" {
			return nil, errors.New("malformed source")
		}
		return s, nil
	}}
	o, err := pipeline.New(pipeline.Config{MaxConcurrent: 2, Observer: m.Observer(ctx, run)}, fail)
	require.NoError(t, err)
	report, err := o.RunBatch(ctx, docs)
	require.NoError(t, err)

	snap := run.Snapshot()
	assert.Equal(t, 3, snap.Progress)
	assert.Equal(t, 2, snap.Completed)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, RunStatusRunning, snap.Status)

	m.Complete(ctx, run, report)
	assert.Contains(t, store.progress, 3, "final progress is always persisted")
	assert.Equal(t, "complete", store.calls[len(store.calls)-1])
	snap = run.Snapshot()
	assert.Equal(t, RunStatusCompleted, snap.Status)
	assert.NotNil(t, snap.CompletedAt)
	assert.Equal(t, []models.DocumentResult{
		{Document: "a.xml", Status: "completed"},
		{Document: "b.xml", Status: "failed", Stage: "conversion", Reason: "malformed source"},
		{Document: "c.xml", Status: "completed"},
	}, store.results)
	assert.Empty(t, store.errMsg)
}

func TestRunManager_Fail(t *testing.T) {
	ctx := context.Background()
	store := &fakeRunStore{}
	m := NewRunManager(store)

	run, err := m.Start(ctx, "gs://papers/xml", nil, 1)
	require.NoError(t, err)
	m.Fail(ctx, run, errors.New("discover: bucket not found"))

	assert.Equal(t, RunStatusFailed, run.Snapshot().Status)
	assert.Equal(t, "discover: bucket not found", store.errMsg)
}

func TestRunManager_ProgressWritesDoNotBlockObserver(t *testing.T) {
	ctx := context.Background()
	store := &fakeRunStore{release: make(chan struct{})}
	m := NewRunManager(store)

	docs := make([]string, 10)
	run, err := m.Start(ctx, "data/xml", docs, 4)
	require.NoError(t, err)
	obs := m.Observer(ctx, run)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for range docs {
			obs.DocumentFinished("doc.xml", pipeline.Completed())
		}
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("observer blocked on a stalled run store")
	}
	assert.Equal(t, 10, run.Snapshot().Progress)

	close(store.release)
	m.Fail(ctx, run, errors.New("interrupted"))

	require.NotEmpty(t, store.progress)
	assert.Equal(t, 10, store.progress[len(store.progress)-1])
	assert.Equal(t, "complete", store.calls[len(store.calls)-1], "progress lands before the final record")
	assert.Equal(t, "interrupted", store.errMsg)
}

func TestRunManager_WithoutStore(t *testing.T) {
	m := NewRunManager(nil)
	run, err := m.Start(context.Background(), "data/xml", []string{"a.xml"}, 1)
	require.NoError(t, err)
	assert.Nil(t, m.Get("missing"))

	m.Observer(context.Background(), run).DocumentFinished("a.xml", pipeline.Completed())
	snap := run.Snapshot()
	assert.Equal(t, 1, snap.Completed)

	snap.Results = append(snap.Results, models.DocumentResult{Document: "x"})
	assert.Empty(t, run.Snapshot().Results, "snapshots are copies")
}
