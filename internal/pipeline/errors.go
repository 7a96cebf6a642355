package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

var (
	// ErrTransient marks an error worth retrying (connectivity, timeouts, conflicts).
	ErrTransient = errors.New("transient failure")

	// ErrCapabilityOutage indicates an external capability stayed unreachable
	// for the whole retry budget. The orchestrator pauses admissions when a
	// stage fails with it.
	ErrCapabilityOutage = errors.New("capability outage")

	// ErrBatchCancelled is recorded for documents stopped by batch cancellation.
	ErrBatchCancelled = errors.New("batch cancelled")

	// ErrDuplicateDocument is returned when a batch names the same document twice.
	ErrDuplicateDocument = errors.New("duplicate document identifier")

	// ErrOutcomeRecorded is returned on a second write to a report entry.
	ErrOutcomeRecorded = errors.New("outcome already recorded")
)

// StageError is the failure of one stage for one document.
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transient wraps err so that IsTransient reports true.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err should be retried.
// Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
