package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retry calls fn up to 1+maxRetries times, sleeping delay between attempts.
// onRetry sees every failure that will be followed by another attempt.
// Cancellation of ctx stops further attempts.
func retry(ctx context.Context, sleep sleepFunc, maxRetries int, delay time.Duration,
	fn func(attempt int) error, onRetry func(attempt int, err error)) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%w (retry aborted: %v)", lastErr, serr)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return lastErr
}
