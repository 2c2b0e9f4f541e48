package durablestore

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// retryableCodes are PostgreSQL SQLSTATEs a caller can plausibly clear by
// retrying: connection failures, serialization conflicts, deadlocks, and
// transient resource exhaustion.
var retryableCodes = map[string]bool{
	"08006": true, // connection_failure
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// distinguishing it from other durable failures per the add-leaderboard path.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

// IsRetryable reports whether err is a transient failure a retry can clear.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableCodes[pgErr.Code]
	}
	// pgx surfaces pool exhaustion and closed-pool conditions without a
	// PgError; treat anything that isn't ErrNoRows as potentially retryable.
	return !errors.Is(err, pgx.ErrNoRows)
}

// errorCheckerFunc adapts a function to resilience.RetryableErrorChecker.
type errorCheckerFunc func(error) bool

func (f errorCheckerFunc) IsRetryable(err error) bool { return f(err) }

// RetryChecker is the resilience.RetryableErrorChecker for durable-store calls.
var RetryChecker = errorCheckerFunc(IsRetryable)
