package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func fast(attempts int) Policy {
	p := Default()
	p.Attempts = attempts
	p.BaseDelay = time.Microsecond
	p.MaxDelay = 10 * time.Microsecond
	return p
}

func TestDelayProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("delay starts at the base and stays within the cap", prop.ForAll(
		func(base, ceiling time.Duration, factor float64, attempt int) bool {
			p := Policy{BaseDelay: base, MaxDelay: ceiling, Factor: factor}
			wait := p.Delay(attempt)
			if attempt == 1 {
				return wait == base
			}
			return wait >= base && wait <= ceiling
		},
		gen.Int64Range(int64(10*time.Millisecond), int64(100*time.Millisecond)).Map(func(v int64) time.Duration { return time.Duration(v) }),
		gen.Int64Range(int64(time.Second), int64(5*time.Second)).Map(func(v int64) time.Duration { return time.Duration(v) }),
		gen.Float64Range(1.1, 3.0),
		gen.IntRange(1, 12),
	))

	properties.Property("delay never shrinks between attempts", prop.ForAll(
		func(attempt int) bool {
			p := Default()
			return p.Delay(attempt+1) >= p.Delay(attempt)
		},
		gen.IntRange(1, 20),
	))

	properties.Property("a failing write is attempted exactly Attempts times", prop.ForAll(
		func(attempts int) bool {
			calls := 0
			err := Do(context.Background(), fast(attempts), func(ctx context.Context) error {
				calls++
				return errors.New("connection reset by peer")
			})
			return err != nil && calls == attempts
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDefaultDelays(t *testing.T) {
	p := Default()
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 16*time.Second, p.Delay(5))
	assert.Equal(t, 30*time.Second, p.Delay(6))

	// Uncapped, flat policy
	flat := Policy{BaseDelay: time.Millisecond, Factor: 1}
	assert.Equal(t, time.Millisecond, flat.Delay(10))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("leader not available")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPermanentErrorStopsImmediately(t *testing.T) {
	invalid := errors.New("row has 3 values, want 4")
	calls := 0
	err := Do(context.Background(), fast(5), func(ctx context.Context) error {
		calls++
		return Permanent(invalid)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, invalid)
	assert.True(t, IsPermanent(err))
	assert.Nil(t, Permanent(nil))
}

func TestRetryablePredicate(t *testing.T) {
	p := fast(5)
	p.Retryable = func(err error) bool { return err.Error() == "retry me" }

	calls := 0
	_ = Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return errors.New("give up")
	})
	assert.Equal(t, 1, calls)
}

func TestOnRetryHook(t *testing.T) {
	var seen []int
	p := fast(3)
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		assert.EqualError(t, err, "deadlock detected")
		assert.Greater(t, int64(wait), int64(0))
	}

	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return errors.New("deadlock detected")
	})

	// No wait follows the final attempt
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Default()
	p.BaseDelay = time.Hour

	calls := 0
	err := Do(ctx, p, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("broker unreachable")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
