// Package resilience implements retry-with-backoff for transient failures
// against the durable store and the index store: pool exhaustion, connection
// resets, and other errors a retry can plausibly clear.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rankvault/leaderboard-service/internal/metrics"
)

// RetryPolicy configures exponential-backoff retry behavior.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter adds up to 10% randomness to each delay to avoid thundering herd.
	Jitter bool

	// ErrorChecker determines which errors should trigger a retry. If nil,
	// all non-nil errors are treated as retryable.
	ErrorChecker RetryableErrorChecker

	Logger  *slog.Logger
	Metrics *metrics.RetryMetrics

	// OperationName labels metrics, e.g. "durable_exec", "index_zadd".
	OperationName string
}

// RetryableErrorChecker decides whether an error should trigger a retry.
type RetryableErrorChecker interface {
	IsRetryable(err error) bool
}

// DefaultRetryPolicy is a sensible default: 3 retries, 100ms base delay
// doubling up to 5s, with jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithRetry executes operation according to policy, retrying on retryable
// errors. Context cancellation during a retry delay returns ctx.Err() immediately.
func WithRetry(ctx context.Context, policy *RetryPolicy, operation func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opName := policy.OperationName
	if opName == "" {
		opName = "unknown"
	}

	var lastErr error
	delay := policy.BaseDelay
	attemptCount := 0

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attemptCount++
		err := operation()

		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			if policy.Metrics != nil {
				policy.Metrics.RecordAttempt(opName, "success", "none")
				policy.Metrics.RecordFinalAttempt(opName, "success", attemptCount)
			}
			return nil
		}

		lastErr = err

		if !shouldRetry(err, policy.ErrorChecker) {
			logger.Debug("error is non-retryable, stopping", "error", err, "attempt", attempt+1)
			if policy.Metrics != nil {
				errorType := classifyError(err)
				policy.Metrics.RecordAttempt(opName, "failure", errorType)
				policy.Metrics.RecordFinalAttempt(opName, "failure", attemptCount)
			}
			return lastErr
		}

		if policy.Metrics != nil {
			policy.Metrics.RecordAttempt(opName, "failure", classifyError(err))
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries", "max_retries", policy.MaxRetries, "error", lastErr)
			if policy.Metrics != nil {
				policy.Metrics.RecordFinalAttempt(opName, "failure", attemptCount)
			}
			break
		}

		logger.Warn("operation failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		if policy.Metrics != nil {
			policy.Metrics.RecordBackoff(opName, delay.Seconds())
		}

		if !waitWithContext(ctx, delay) {
			if policy.Metrics != nil {
				policy.Metrics.RecordFinalAttempt(opName, "cancelled", attemptCount)
			}
			return ctx.Err()
		}

		delay = calculateNextDelay(delay, policy)
	}

	return fmt.Errorf("operation failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

// WithRetryFunc is WithRetry for operations that return a value.
func WithRetryFunc[T any](ctx context.Context, policy *RetryPolicy, operation func() (T, error)) (T, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastResult T
	var lastErr error
	delay := policy.BaseDelay

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			return result, nil
		}

		lastResult, lastErr = result, err

		if !shouldRetry(err, policy.ErrorChecker) {
			return lastResult, lastErr
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries", "max_retries", policy.MaxRetries, "error", lastErr)
			break
		}

		logger.Warn("operation failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		if !waitWithContext(ctx, delay) {
			var zero T
			return zero, ctx.Err()
		}

		delay = calculateNextDelay(delay, policy)
	}

	return lastResult, fmt.Errorf("operation failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

func shouldRetry(err error, checker RetryableErrorChecker) bool {
	if err == nil {
		return false
	}
	if checker != nil {
		return checker.IsRetryable(err)
	}
	return true
}

func waitWithContext(ctx context.Context, delay time.Duration) bool {
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func calculateNextDelay(currentDelay time.Duration, policy *RetryPolicy) time.Duration {
	nextDelay := time.Duration(float64(currentDelay) * policy.Multiplier)
	if nextDelay > policy.MaxDelay {
		nextDelay = policy.MaxDelay
	}
	if policy.Jitter {
		nextDelay += time.Duration(float64(nextDelay) * 0.1 * rand.Float64())
	}
	return nextDelay
}
