package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, fastOptions())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	boom := errors.New("bad config")
	calls := 0

	err := Do(func() error {
		calls++
		return boom
	}, fastOptions())

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("connection refused"))
		}
		return nil
	}, fastOptions())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	inner := errors.New("still down")
	calls := 0

	err := Do(func() error {
		calls++
		return Retryable(inner)
	}, fastOptions())

	assert.Equal(t, 3, calls)
	// The marker is stripped from the final error.
	assert.Equal(t, inner, err)
	assert.False(t, IsRetryable(err))
}

func TestDoBackoffGrowsBetweenAttempts(t *testing.T) {
	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = time.Sleep }()

	opts := Options{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.5,
	}
	err := Do(func() error {
		return Retryable(errors.New("still down"))
	}, opts)

	require.Error(t, err)
	// Two sleeps for three attempts, none after the last.
	require.Len(t, slept, 2)
	assert.Equal(t, 100*time.Millisecond, slept[0])
	assert.Equal(t, 250*time.Millisecond, slept[1])
	assert.Greater(t, slept[1], slept[0])
}

func TestDoNoSleepWhenNonRetryable(t *testing.T) {
	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = time.Sleep }()

	err := Do(func() error {
		return errors.New("bad config")
	}, fastOptions())

	require.Error(t, err)
	assert.Empty(t, slept)
}

func TestRetryableNil(t *testing.T) {
	assert.NoError(t, Retryable(nil))
}

func TestIsRetryableSeesWrappedMarker(t *testing.T) {
	err := Retryable(errors.New("timeout"))
	wrapped := errors.Join(errors.New("outer"), err)

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestDoValue(t *testing.T) {
	calls := 0
	value, err := DoValue(func() (string, error) {
		calls++
		if calls == 1 {
			return "", Retryable(errors.New("transient"))
		}
		return "done", nil
	}, fastOptions())

	require.NoError(t, err)
	assert.Equal(t, "done", value)
	assert.Equal(t, 2, calls)
}
