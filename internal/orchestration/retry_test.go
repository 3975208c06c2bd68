package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	var slept []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	var retried []int
	err := retry(ctx(), sleep, 2, 5*time.Millisecond,
		func(int) error {
			calls++
			return errors.New("boom")
		},
		func(attempt int, _ error) { retried = append(retried, attempt) },
	)

	require.EqualError(t, err, "boom")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, slept)
}

func TestRetryZeroIsSingleShot(t *testing.T) {
	calls := 0
	err := retry(ctx(), sleepContext, 0, time.Hour, func(int) error {
		calls++
		return errors.New("boom")
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	c, cancel := context.WithCancel(ctx())
	cancel()

	calls := 0
	err := retry(c, sleepContext, 5, time.Hour, func(int) error {
		calls++
		return errors.New("boom")
	}, nil)

	require.Error(t, err)
	assert.ErrorContains(t, err, "retry aborted")
	assert.Equal(t, 1, calls)
}
