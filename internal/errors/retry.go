package errors

import (
	"context"
	"time"
)

// RetryPolicy bounds the backoff loop used for throttled collaborator calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the bound we configure on the AWS retryer.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Retry runs fn, retrying with exponential backoff while it fails with a
// throttle error. Permission errors and every other kind surface on the
// first occurrence. The context deadline aborts the loop between attempts.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	delay := policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Wrap(KindInternal, "cancelled", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		classified := Classify(lastErr)
		if classified.Kind != KindThrottle || attempt == policy.MaxAttempts {
			return classified
		}

		select {
		case <-ctx.Done():
			return Wrap(KindInternal, "cancelled", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return Classify(lastErr)
}
