package dataloader

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// PollConfig bounds how long a statement is waited on.
type PollConfig struct {
	// Interval is the first delay between status checks; it doubles after
	// every check up to MaxInterval.
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts uint
	Timeout     time.Duration
	// DeadlineMargin is kept free before the invocation deadline so a
	// response can still be returned once polling gives up.
	DeadlineMargin time.Duration
}

// DefaultPollConfig checks every second at first and gives up well inside the
// fifteen minute Lambda ceiling.
var DefaultPollConfig = PollConfig{
	Interval:       time.Second,
	MaxInterval:    10 * time.Second,
	MaxAttempts:    300,
	Timeout:        14 * time.Minute,
	DeadlineMargin: 2 * time.Second,
}

var errStatementRunning = errors.New("statement still running")

// backoff is the delay after the n-th status check (counting from zero).
func (c PollConfig) backoff(n uint) time.Duration {
	d := c.Interval
	for i := uint(0); i < n && (c.MaxInterval <= 0 || d < c.MaxInterval); i++ {
		d *= 2
	}
	if c.MaxInterval > 0 && d > c.MaxInterval {
		d = c.MaxInterval
	}
	return d
}

// pollContext narrows ctx to the poll timeout and to DeadlineMargin before
// any deadline ctx already carries.
func (c PollConfig) pollContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if ok {
		deadline = deadline.Add(-c.DeadlineMargin)
	}
	if c.Timeout > 0 {
		if limit := time.Now().Add(c.Timeout); !ok || limit.Before(deadline) {
			deadline, ok = limit, true
		}
	}
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}

// waitForStatement polls the executor until id reaches a terminal status.
func (d *Dispatcher) waitForStatement(ctx context.Context, id string) (StatementStatus, error) {
	cfg := d.Poll
	if cfg.MaxAttempts == 0 {
		cfg = DefaultPollConfig
	}
	ctx, cancel := cfg.pollContext(ctx)
	defer cancel()

	var status StatementStatus
	err := retry.Do(
		func() error {
			st, err := d.Executor.Describe(ctx, id)
			if err != nil {
				return err
			}
			status = st
			level.Info(d.logger()).Log("msg", "statement status", "statement_id", id, "status", status.Status)
			if !status.Terminal() {
				return errStatementRunning
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return cfg.backoff(n)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return err == errStatementRunning
		}),
	)
	switch {
	case err == nil:
		return status, nil
	case ctx.Err() != nil:
		// The executor may surface the cancellation as its own error type.
		last := status.Status
		if last == "" {
			last = "unchecked"
		}
		return status, errors.Errorf("statement %s still %s when polling stopped: %v", id, last, ctx.Err())
	case err == errStatementRunning:
		return status, errors.Errorf("statement %s still %s after %d status checks", id, status.Status, cfg.MaxAttempts)
	}
	return status, err
}

func (d *Dispatcher) logger() log.Logger {
	if d.Logger == nil {
		return log.NewNopLogger()
	}
	return d.Logger
}
