package emulator

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-avd/pkg/poll"
)

// WaitForBoot polls the boot-completion property until it reads BootSentinel.
// Query failures count as not ready. A zero timeout uses the configured default.
// On expiry it returns a *TimeoutError wrapping ErrBootTimeout.
func (o *Orchestrator) WaitForBoot(ctx context.Context, serial string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = o.cfg.BootTimeout
	}
	return o.waitFor(ctx, serial, timeout, ErrBootTimeout, o.bootCheck(serial))
}

// WaitForVideo polls single screen captures until one returns a non-empty
// payload. Each capture is bounded by the capture timeout; failures, timeouts
// and empty payloads count as not ready. On expiry it returns a *TimeoutError
// wrapping ErrVideoTimeout.
func (o *Orchestrator) WaitForVideo(ctx context.Context, serial string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = o.cfg.VideoTimeout
	}
	return o.waitFor(ctx, serial, timeout, ErrVideoTimeout, o.frameCheck(serial))
}

func (o *Orchestrator) waitFor(ctx context.Context, serial string, timeout time.Duration, kind error, check poll.Check) error {
	var last error
	opts := poll.Options{
		Timeout:  timeout,
		Interval: o.cfg.PollInterval,
		OnAttempt: func(attempt int, r poll.Result) {
			if r.State == poll.NotYetReady {
				last = r.Err
				o.logger.Debug("device not ready", "serial", serial, "wait", kind, "attempt", attempt, "cause", r.Err)
			}
		},
	}

	err := poll.Until(ctx, opts, check)
	if errors.Is(err, poll.ErrDeadline) {
		return &TimeoutError{Kind: kind, Serial: serial, Timeout: timeout, Last: last}
	}
	return err
}

func (o *Orchestrator) bootCheck(serial string) poll.Check {
	return func(ctx context.Context) poll.Result {
		qctx, cancel := context.WithTimeout(ctx, o.cfg.QueryTimeout)
		defer cancel()

		value, err := o.bridge.BootCompleted(qctx, serial)
		if err != nil {
			return poll.Pending(err)
		}
		if value == BootSentinel {
			return poll.Done()
		}
		return poll.Pending(nil)
	}
}

func (o *Orchestrator) frameCheck(serial string) poll.Check {
	return func(ctx context.Context) poll.Result {
		cctx, cancel := context.WithTimeout(ctx, o.cfg.CaptureTimeout)
		defer cancel()

		img, err := o.bridge.Screencap(cctx, serial)
		if err != nil {
			return poll.Pending(err)
		}
		if len(img) == 0 {
			return poll.Pending(nil)
		}
		return poll.Done()
	}
}
