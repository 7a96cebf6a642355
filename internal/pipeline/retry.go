package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds calls to external collaborators.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// CallTimeout bounds each individual attempt. Zero disables the timeout.
	CallTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		CallTimeout:     60 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithMaxElapsedTime(0),
	}
	if p.InitialInterval > 0 {
		opts = append(opts, backoff.WithInitialInterval(p.InitialInterval))
	}
	if p.MaxInterval > 0 {
		opts = append(opts, backoff.WithMaxInterval(p.MaxInterval))
	}
	if p.Multiplier >= 1 {
		opts = append(opts, backoff.WithMultiplier(p.Multiplier))
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(opts...), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do calls fn until it succeeds, fails permanently or the attempt budget is
// spent. Only errors for which IsTransient is true are retried. A transient
// error that survives every attempt is returned wrapped with ErrCapabilityOutage.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0
	var lastErr error
	operation := func() error {
		attempts++
		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("retrying call", "op", op, "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if lastErr != nil && IsTransient(lastErr) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrCapabilityOutage, op, attempts, lastErr)
	}
	if errors.Is(err, context.Canceled) && lastErr != nil {
		return lastErr
	}
	return err
}

func (p RetryPolicy) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.CallTimeout)
}
