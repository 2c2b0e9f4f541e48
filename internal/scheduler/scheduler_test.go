package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_EmptyCronReturnsSentinelHandle(t *testing.T) {
	s := New(nil)
	handle, err := s.Schedule("", func() {})
	require.NoError(t, err)
	require.False(t, handle.active)

	// Cancelling the sentinel must not panic.
	s.Cancel(handle)
}

func TestScheduler_InvalidCronIsHardError(t *testing.T) {
	s := New(nil)
	_, err := s.Schedule("not a cron expression", func() {})
	require.Error(t, err)
}

func TestScheduler_ValidCronRegistersJob(t *testing.T) {
	s := New(nil)
	handle, err := s.Schedule("0 0 0 1 1 *", func() {})
	require.NoError(t, err)
	require.True(t, handle.active)
	s.Cancel(handle)
}

func TestValidate_EmptyExpressionIsValid(t *testing.T) {
	require.NoError(t, Validate(""))
}

func TestValidate_RejectsMalformedExpression(t *testing.T) {
	require.Error(t, Validate("not a cron expression"))
}

func TestValidate_AcceptsWellFormedExpression(t *testing.T) {
	require.NoError(t, Validate("0 0 0 * * *"))
}
