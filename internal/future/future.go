// Package future provides a value that is settled exactly once.
package future

import (
	"context"
	"sync"
)

// Future holds the outcome of an operation that completes elsewhere, usually
// in an event callback. The first call to Resolve or Reject wins; later calls
// are no-ops and report false.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New returns an unsettled Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve settles the future with v.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	won := false
	f.once.Do(func() {
		f.value, f.err = v, err
		won = true
		close(f.done)
	})
	return won
}

// Done is closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future is settled or ctx ends. When ctx ends first the
// future is rejected with the context's cause, so a late Resolve is ignored.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		f.Reject(context.Cause(ctx))
	}
	<-f.done
	return f.value, f.err
}
