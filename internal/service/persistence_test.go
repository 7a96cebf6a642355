package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

func TestPersistence_RerunIsIdempotent(t *testing.T) {
	store := db.NewMemoryStore()
	s := &PersistenceStage{Store: store, Retry: fastRetry(3)}
	state := &pipeline.State{Document: "vol.xml", Record: labeled()}

	out, err := s.Run(context.Background(), "vol.xml", state)
	require.NoError(t, err)
	assert.True(t, out.Final)
	once := store.Snapshot()

	_, err = s.Run(context.Background(), "vol.xml", state)
	require.NoError(t, err)

	if diff := cmp.Diff(once, store.Snapshot()); diff != "" {
		t.Errorf("second persist changed the graph (-once +twice):\n%s", diff)
	}
}

// flakyStore fails the first n writes with err, then delegates.
type flakyStore struct {
	*db.MemoryStore
	n      int32
	err    error
	calls  atomic.Int32
	closed atomic.Int32
}

func (f *flakyStore) Acquire(ctx context.Context) (db.Session, error) {
	sess, err := f.MemoryStore.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &flakySession{Session: sess, f: f}, nil
}

type flakySession struct {
	db.Session
	f *flakyStore
}

func (s *flakySession) WriteFragment(ctx context.Context, frag models.Fragment) error {
	if s.f.calls.Add(1) <= s.f.n {
		return s.f.err
	}
	return s.Session.WriteFragment(ctx, frag)
}

func (s *flakySession) Close() {
	s.f.closed.Add(1)
	s.Session.Close()
}

func TestPersistence_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		failures  int32
		wantErr    bool
		wantCalls  int32
		wantOutage bool
	}{
		{"conflict is retried", fmt.Errorf("write: %w", db.ErrTransactionConflict), 2, false, 3, false},
		{"duplicate key is retried", fmt.Errorf("write: %w", db.ErrEntityAlreadyExists), 1, false, 2, false},
		{"unavailable exhausts budget", fmt.Errorf("write: %w", db.ErrUnavailable), 5, true, 3, true},
		{"persistent duplicate key fails the document only", fmt.Errorf("write: %w", db.ErrEntityAlreadyExists), 5, true, 3, false},
		{"schema error is fatal", errors.New("Found 'x' for field rel_type"), 5, true, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &flakyStore{MemoryStore: db.NewMemoryStore(), n: tt.failures, err: tt.err}
			s := &PersistenceStage{Store: store, Retry: fastRetry(3)}

			_, err := s.Run(context.Background(), "vol.xml", &pipeline.State{Record: labeled()})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantOutage, errors.Is(err, pipeline.ErrCapabilityOutage))
				assert.Zero(t, store.Writes())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, store.Writes())
			}
			assert.Equal(t, tt.wantCalls, store.calls.Load())
			assert.Equal(t, tt.wantCalls, store.closed.Load(), "every session is released")
		})
	}
}
