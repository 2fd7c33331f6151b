package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout reports that WithTimeout gave up waiting on fn.
var ErrTimeout = errors.New("operation timed out")

// WithTimeout runs fn under a context that expires after timeout and returns
// as soon as either finishes. fn keeps running in the background after a
// timeout until it notices its context is done. A non-positive timeout
// calls fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w after %v", name, ErrTimeout, timeout)
		}
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}
