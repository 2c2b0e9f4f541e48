package indexstore

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// IsRetryable reports whether err is a transient Redis failure a retry can
// clear: connection resets, pool timeouts, and similar network-level faults.
// redis.Nil signals a legitimate miss, never a failure to retry.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil)
}

// errorCheckerFunc adapts a function to resilience.RetryableErrorChecker.
type errorCheckerFunc func(error) bool

func (f errorCheckerFunc) IsRetryable(err error) bool { return f(err) }

// RetryChecker is the resilience.RetryableErrorChecker for index-store calls.
var RetryChecker = errorCheckerFunc(IsRetryable)
