package poll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock. Sleep advances the current time
// instead of blocking, so the poller runs instantly under test.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

var errNotReady = errors.New("not ready")

// TestWait_NeverReady_FailsWithinBounds checks that a probe which never
// succeeds fails no earlier than the timeout and no later than
// timeout + interval, for several budgets.
func TestWait_NeverReady_FailsWithinBounds(t *testing.T) {
	for _, timeout := range []time.Duration{60 * time.Second, 120 * time.Second, 5 * time.Second, 3 * time.Second} {
		t.Run(timeout.String(), func(t *testing.T) {
			clock := newFakeClock()
			start := clock.Now()
			p := NewWithClock(clock, timeout, DefaultInterval)

			_, err := p.Wait(context.Background(), "never", func(context.Context) error {
				return errNotReady
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTimeout)
			assert.ErrorIs(t, err, errNotReady, "last probe error should be wrapped")

			elapsed := clock.Now().Sub(start)
			assert.GreaterOrEqual(t, elapsed, timeout)
			assert.LessOrEqual(t, elapsed, timeout+DefaultInterval)
		})
	}
}

// TestWait_SucceedsOnNthAttempt checks that the probe is invoked exactly N
// times when it first succeeds on attempt N.
func TestWait_SucceedsOnNthAttempt(t *testing.T) {
	for _, n := range []int{1, 2, 5, 30} {
		t.Run(fmt.Sprintf("attempt-%d", n), func(t *testing.T) {
			clock := newFakeClock()
			p := NewWithClock(clock, 120*time.Second, DefaultInterval)

			calls := 0
			attempts, err := p.Wait(context.Background(), "svc", func(context.Context) error {
				calls++
				if calls < n {
					return errNotReady
				}
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, n, calls)
			assert.Equal(t, n, attempts)
			assert.Equal(t, n-1, clock.sleeps, "no sleep after the successful attempt")
		})
	}
}

// TestWait_SlowProbeConsumesBudget verifies the budget is wall-clock based:
// a probe taking 10s per call exhausts a 60s budget in far fewer than
// 60/2 attempts.
func TestWait_SlowProbeConsumesBudget(t *testing.T) {
	clock := newFakeClock()
	p := NewWithClock(clock, 60*time.Second, DefaultInterval)

	attempts, err := p.Wait(context.Background(), "slow", func(context.Context) error {
		clock.advance(10 * time.Second)
		return errNotReady
	})

	require.Error(t, err)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, attempts, te.Attempts)
	assert.Equal(t, "slow", te.Name)
	// Each attempt costs 12s (10s probe + 2s sleep): 0→10, 12→22, ..., 60→70.
	assert.Equal(t, 6, attempts)
}

// TestWait_ContextCancelled verifies that cancelling the context stops the
// loop with the context error rather than a timeout.
func TestWait_ContextCancelled(t *testing.T) {
	clock := newFakeClock()
	p := NewWithClock(clock, 120*time.Second, DefaultInterval)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := p.Wait(ctx, "svc", func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errNotReady
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 3, calls)
}

func TestWait_OnAttemptCallback(t *testing.T) {
	clock := newFakeClock()
	p := NewWithClock(clock, 10*time.Second, DefaultInterval)

	var seen []int
	p.OnAttempt = func(name string, attempt int, elapsed time.Duration, err error) {
		assert.Equal(t, "db", name)
		assert.ErrorIs(t, err, errNotReady)
		seen = append(seen, attempt)
	}

	calls := 0
	_, err := p.Wait(context.Background(), "db", func(context.Context) error {
		calls++
		if calls == 3 {
			return nil
		}
		return errNotReady
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestWithTimeout_CopiesPoller(t *testing.T) {
	p := NewWithClock(newFakeClock(), 120*time.Second, DefaultInterval)
	q := p.WithTimeout(60 * time.Second)

	assert.Equal(t, 120*time.Second, p.Timeout())
	assert.Equal(t, 60*time.Second, q.Timeout())
	assert.Equal(t, DefaultInterval, q.Interval())
}

func TestNewWithClock_DefaultsInterval(t *testing.T) {
	p := NewWithClock(newFakeClock(), time.Minute, 0)
	assert.Equal(t, DefaultInterval, p.Interval())
}

// TestSystemClock_SleepCancelled verifies the real clock returns promptly
// when the context is already cancelled.
func TestSystemClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
