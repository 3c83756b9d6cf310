// Package retry provides automatic retry with exponential backoff for
// transient metadata-service failures.
//
// Error classification and backoff timing are pluggable: the
// TransportErrorClassifier recognizes network-level failures and
// retryable HTTP status codes, and ExponentialBackoff implements capped
// exponential delays with jitter.
//
// Executor instances are safe for concurrent use. WithOnRetry returns a
// new instance, so each caller can attach its own callback without
// shared state.
package retry

import (
	"context"
	"time"
)

// ErrorClassifier decides which errors are transient (retryable) versus
// fatal (non-retryable).
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// BackoffStrategy controls retry timing.
type BackoffStrategy interface {
	// MaxAttempts is the number of retries after the initial attempt.
	// Negative means retry indefinitely.
	MaxAttempts() int
	NextDelay(attempt int) time.Duration
}

// Executor orchestrates retry attempts with backoff and error
// classification.
type Executor struct {
	classifier ErrorClassifier
	strategy   BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a retry executor. Panics if classifier or strategy
// is nil.
func NewExecutor(classifier ErrorClassifier, strategy BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a new Executor with the callback configured. The
// receiver is not modified.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs the operation, retrying transient failures until the
// strategy's attempt budget is exhausted. Returns the result of the last
// attempt.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)
	if lastErr == nil {
		return nil
	}
	if !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
