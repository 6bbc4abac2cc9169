// internal/retry/retry.go - bounded retry with exponential backoff
package retry

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Options controls the retry policy. Delay before attempt k+1 is
// InitialDelay * Multiplier^(k-1).
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultOptions matches the policy used for LLM and notification calls.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
	}
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks an error as transient so Do will retry it. Errors not
// marked this way propagate immediately.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err (or anything it wraps) was marked transient.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// sleep is swapped out in tests.
var sleep = time.Sleep

// Do calls fn up to opts.MaxAttempts times, sleeping between attempts.
// Sleeps are synchronous and block the caller. The final error is returned
// unwrapped of its retryable marker.
func Do(fn func() error, opts Options) error {
	var lastErr error
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt < opts.MaxAttempts {
			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     opts.MaxAttempts,
				"delay":   delay,
			}).WithError(err).Debug("Transient failure, retrying")

			sleep(delay)
			delay = time.Duration(float64(delay) * opts.Multiplier)
		} else {
			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     opts.MaxAttempts,
			}).WithError(err).Debug("Transient failure, no more retries")
		}
	}

	var re *retryableError
	if errors.As(lastErr, &re) {
		return re.err
	}
	return lastErr
}

// DoValue is Do for functions that produce a value.
func DoValue[T any](fn func() (T, error), opts Options) (T, error) {
	var result T
	err := Do(func() error {
		var err error
		result, err = fn()
		return err
	}, opts)
	return result, err
}
