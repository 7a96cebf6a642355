package db

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEntityAlreadyExists indicates a record with the same ID already exists.
	// UPSERT never raises it; a concurrent RELATE racing on the unique edge
	// index can.
	ErrEntityAlreadyExists = errors.New("entity already exists")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	// This occurs when concurrent documents write the same shared node.
	// Callers should retry.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrUnavailable indicates the database could not be reached.
	ErrUnavailable = errors.New("database unavailable")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel error if it's a known query error type. Returns the original error
// if it's not a QueryError or doesn't match known patterns.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	// Extract QueryError if present - this is a database-level error
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") || strings.Contains(msg, "already contains") {
			return fmt.Errorf("%w: %s", ErrEntityAlreadyExists, msg)
		}
		if strings.Contains(msg, "Transaction conflict") || strings.Contains(msg, "transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "connection reset", "not connected", "broken pipe", "websocket: close"} {
		if strings.Contains(msg, p) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return err
}
