package httputil

import (
	"context"
	"errors"
	"time"
)

// maxWait caps a single pause between attempts, whatever the server asks
// for in Retry-After.
const maxWait = 30 * time.Second

// RetryableError marks a transient failure (connection error, 5xx, 429).
// After is the pause the server asked for, zero when it gave none.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails with an error that is not a
// [RetryableError], or has been called attempts times. The pause starts at
// delay and doubles after every failure; a longer Retry-After from the
// server takes precedence.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := min(max(delay, re.After), maxWait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}

// RetryWithBackoff is the default policy of [Client]: three attempts,
// starting with a one second pause.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}
