package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the fixed sleep between probe attempts.
const DefaultInterval = 2 * time.Second

// ErrTimeout is matched by every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("readiness timeout")

// Probe is a single readiness check. A nil return means the dependency is
// ready; any error means "not yet" and is retained as the last failure.
type Probe func(ctx context.Context) error

// Clock abstracts wall-clock time so tests can drive the poller without
// sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the production Clock backed by the time package.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d using a timer so that context cancellation (e.g. the
// operator pressing Ctrl-C) interrupts the wait immediately.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TimeoutError is returned when a probe never succeeded within the budget.
type TimeoutError struct {
	// Name identifies the dependency being waited on.
	Name string

	// Timeout is the budget that was exceeded.
	Timeout time.Duration

	// Attempts is the number of probe invocations made.
	Attempts int

	// Last is the error returned by the final probe invocation.
	Last error
}

// Error satisfies the error interface.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s not ready after %s (%d attempts)", e.Name, e.Timeout, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) true for any TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap exposes the last probe error.
func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// Poller runs a probe at a fixed interval until it succeeds or Timeout of
// wall-clock time has elapsed. The zero value is not usable; construct one
// with New.
type Poller struct {
	clock    Clock
	timeout  time.Duration
	interval time.Duration

	// OnAttempt, if set, is called after every failed attempt with the
	// elapsed time. The CLI logs these in verbose mode.
	OnAttempt func(name string, attempt int, elapsed time.Duration, err error)
}

// New creates a Poller using the system clock.
func New(timeout, interval time.Duration) *Poller {
	return NewWithClock(SystemClock{}, timeout, interval)
}

// NewWithClock creates a Poller with an injected clock.
func NewWithClock(clock Clock, timeout, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{clock: clock, timeout: timeout, interval: interval}
}

// Timeout returns the poller's wall-clock budget.
func (p *Poller) Timeout() time.Duration {
	return p.timeout
}

// Interval returns the fixed sleep between attempts.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// WithTimeout returns a copy of p with a different budget. Call sites use
// different budgets (60s for the model daemon, 120s for the stack).
func (p *Poller) WithTimeout(timeout time.Duration) *Poller {
	cp := *p
	cp.timeout = timeout
	return &cp
}

// Wait runs probe until it returns nil or the elapsed wall-clock time since
// the call reaches the timeout. It returns the number of probe invocations.
//
// Elapsed time is measured with the clock, not derived from the attempt
// count, so a slow probe consumes more of the budget per attempt. A probe
// that succeeds on its Nth call is invoked exactly N times.
func (p *Poller) Wait(ctx context.Context, name string, probe Probe) (int, error) {
	start := p.clock.Now()
	attempts := 0

	for {
		attempts++
		err := probe(ctx)
		if err == nil {
			return attempts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempts, ctxErr
		}

		elapsed := p.clock.Now().Sub(start)
		if p.OnAttempt != nil {
			p.OnAttempt(name, attempts, elapsed, err)
		}
		if elapsed >= p.timeout {
			return attempts, &TimeoutError{
				Name:     name,
				Timeout:  p.timeout,
				Attempts: attempts,
				Last:     err,
			}
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return attempts, err
		}
	}
}
