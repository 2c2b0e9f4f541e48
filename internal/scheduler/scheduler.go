// Package scheduler owns one recurring reset job per leaderboard with a
// non-empty cron expression, backed by robfig/cron/v3.
package scheduler

import (
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// normalizeCronExpr accepts both the 6-field (seconds + standard 5) and
// 7-field (seconds + standard 5 + trailing year-like field) forms and
// returns the 6-field form robfig/cron/v3 parses. A 7th field is accepted
// for compatibility but not itself validated or scheduled on, since
// robfig/cron/v3 has no year field of its own.
func normalizeCronExpr(cronExpr string) string {
	fields := strings.Fields(cronExpr)
	if len(fields) == 7 {
		return strings.Join(fields[:6], " ")
	}
	return cronExpr
}

// Handle identifies a scheduled job, or the sentinel "no job" handle
// returned for an empty cron expression.
type Handle struct {
	entryID cron.EntryID
	active  bool
}

// noJob is returned by Schedule for an empty cron expression: no job was
// registered, and Cancel on it is a no-op.
var noJob = Handle{active: false}

// Scheduler wraps a single cron.Cron instance owning every leaderboard's
// reset job. Job callbacks run on the cron worker's own goroutine pool and
// must not block it.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	started bool
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// Schedule parses cronExpr and registers resetCallback against it. An empty
// expression returns the sentinel handle without registering anything. An
// invalid expression is a hard error.
func (s *Scheduler) Schedule(cronExpr string, resetCallback func()) (Handle, error) {
	if cronExpr == "" {
		return noJob, nil
	}

	id, err := s.cron.AddFunc(normalizeCronExpr(cronExpr), func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("reset callback panicked", "recover", r)
			}
		}()
		resetCallback()
	})
	if err != nil {
		return Handle{}, err
	}
	return Handle{entryID: id, active: true}, nil
}

// Validate parses cronExpr without registering a job, for callers that need
// to reject an invalid expression before committing to a durable write. An
// empty expression is valid.
func Validate(cronExpr string) error {
	if cronExpr == "" {
		return nil
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(normalizeCronExpr(cronExpr))
	return err
}

// Cancel removes the job behind handle. Cancelling the sentinel handle is a no-op.
func (s *Scheduler) Cancel(handle Handle) {
	if !handle.active {
		return
	}
	s.cron.Remove(handle.entryID)
}

// Start begins running scheduled jobs. Must be called exactly once, after
// the initial registry load and all initial Schedule calls.
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
