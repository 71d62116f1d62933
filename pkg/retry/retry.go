package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Policy describes how often and how patiently an operation is retried
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts; zero leaves it uncapped
	MaxDelay time.Duration
	Factor   float64

	// Retryable decides whether an error is worth another attempt. A nil
	// Retryable retries everything except permanent errors.
	Retryable func(error) bool

	// OnRetry is called before each wait, if set
	OnRetry func(attempt int, err error, wait time.Duration)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Default is the policy for Postgres batch writes and Kafka publishes:
// five attempts, doubling from one second up to thirty.
func Default() Policy {
	return Policy{
		Attempts:  5,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
		Factor:    2,
	}
}

func (p Policy) retryable(err error) bool {
	if IsPermanent(err) || errors.Is(err, context.Canceled) {
		return false
	}
	return p.Retryable == nil || p.Retryable(err)
}

// Delay returns the wait after the given failed attempt (1-based)
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.Factor <= 1 {
		return p.BaseDelay
	}
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts or
// ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !p.retryable(err) {
			return err
		}

		wait := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
