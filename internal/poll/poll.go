// Package poll retries a condition at a fixed interval until it holds.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the condition never held within the policy.
var ErrExhausted = errors.New("condition not met")

// Policy bounds a polling loop.
type Policy struct {
	Interval time.Duration
	Attempts int
}

// Budget is the longest time a loop under this policy may sleep.
func (p Policy) Budget() time.Duration {
	return p.Interval * time.Duration(max(p.Attempts-1, 0))
}

// Until evaluates cond up to p.Attempts times, sleeping p.Interval between
// attempts. It returns nil as soon as cond reports true, the first error cond
// returns, the context's error if ctx ends, or ErrExhausted.
func Until(ctx context.Context, p Policy, cond func(ctx context.Context) (bool, error)) error {
	attempts := max(p.Attempts, 1)

	for i := range attempts {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(p.Interval):
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
}
