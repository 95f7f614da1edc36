// Package retry holds the retry policy shared by every provider client.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults applied when a provider config leaves the retry fields empty.
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Policy retries an operation a fixed number of times with a fixed delay
// between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// WithDefaults backfills a missing attempt count and clamps a negative delay.
func (p Policy) WithDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// PermanentError stops Do from retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// AttemptsError is returned when every attempt failed.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }

// Do runs fn until it succeeds, returns a permanent error, the context is
// done, or the policy's attempts are used up. Permanent errors are returned
// unwrapped from their marker.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p = p.WithDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		lastErr = err

		if attempt < p.Attempts && p.Delay > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}

	return &AttemptsError{Attempts: p.Attempts, Err: lastErr}
}
