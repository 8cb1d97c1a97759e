// Package retry runs an operation a fixed number of times with no delay
// between attempts.
package retry

import (
	"context"
	"fmt"
)

// Policy bounds how many times an operation is attempted.
type Policy struct {
	Attempts int
}

// New returns a policy with the given attempt bound.
func New(attempts int) Policy {
	return Policy{Attempts: attempts}
}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

// Do calls fn until it succeeds or the attempts run out. onFail, when non-nil,
// sees every failed attempt. The last error is returned wrapped with the
// attempt count; context cancellation stops the loop immediately.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, onFail func(attempt int, err error)) error {
	limit := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if onFail != nil {
			onFail(attempt, err)
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", limit, lastErr)
}
