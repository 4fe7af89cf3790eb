package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryWithContext(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("RetryWithContext() error: %v", err)
		}
		if got != "ok" || calls != 1 {
			t.Errorf("got %q after %d calls, want %q after 1", got, calls, "ok")
		}
	})

	t.Run("recovers from transient failures", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		if err != nil {
			t.Fatalf("RetryWithContext() error: %v", err)
		}
		if got != 7 || calls != 3 {
			t.Errorf("got %d after %d calls, want 7 after 3", got, calls)
		}
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		last := errors.New("attempt 3")
		_, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			if calls == 3 {
				return 0, last
			}
			return 0, errors.New("earlier")
		})
		if !errors.Is(err, last) {
			t.Errorf("err = %v, want %v", err, last)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("non-positive tries still runs once", func(t *testing.T) {
		calls := 0
		if _, err := RetryWithContext(context.Background(), 0, func(ctx context.Context) (int, error) {
			calls++
			return 1, nil
		}); err != nil {
			t.Fatalf("RetryWithContext() error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled context stops before calling", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_, err := RetryWithContext(ctx, 3, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})

	t.Run("context error from fn is not retried", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			return 0, context.DeadlineExceeded
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
