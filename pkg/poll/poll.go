// Package poll runs fixed-interval readiness checks against a deadline.
//
// A check reports one of three outcomes. Ready ends the loop successfully,
// NotYetReady schedules another attempt, and Error aborts immediately.
// Transient failures are classified by the check itself, so ignoring them is
// an explicit branch rather than a swallowed error.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned when the deadline passes without a Ready result.
var ErrDeadline = errors.New("poll: deadline exceeded")

// ErrCheckFailed is returned for an Error result that carries no cause.
var ErrCheckFailed = errors.New("poll: check failed")

// State is the outcome of a single attempt.
type State int

const (
	NotYetReady State = iota
	Ready
	Error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case NotYetReady:
		return "not-yet-ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Result is what a check returns. Err is informational for NotYetReady
// (the transient cause) and fatal for Error.
type Result struct {
	State State
	Err   error
}

// Done returns a Ready result.
func Done() Result { return Result{State: Ready} }

// Pending returns a NotYetReady result, optionally carrying the transient cause.
func Pending(cause error) Result { return Result{State: NotYetReady, Err: cause} }

// Fail returns an Error result.
func Fail(err error) Result { return Result{State: Error, Err: err} }

// Check performs one attempt.
type Check func(ctx context.Context) Result

// Options control the loop timing.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration

	// OnAttempt, if set, is called after every attempt.
	OnAttempt func(attempt int, r Result)
}

// Until runs check until it reports Ready, reports Error, the timeout elapses,
// or ctx is cancelled. A check is always attempted at least once. The deadline
// is compared after each attempt, so an attempt that starts before the deadline
// may finish after it.
func Until(ctx context.Context, opts Options, check Check) error {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r := check(ctx)
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt, r)
		}
		switch r.State {
		case Ready:
			return nil
		case Error:
			if r.Err == nil {
				return ErrCheckFailed
			}
			return r.Err
		}

		if time.Since(start) > opts.Timeout {
			return ErrDeadline
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
}
