package util

import (
	"context"
	"errors"
)

// RetryWithContext calls fn until it succeeds, up to maxTries times
// (minimum 1). Context cancellation stops the attempts immediately, and a
// context error from fn itself is never retried. On exhaustion the last
// error is returned.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < max(maxTries, 1); attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}
