package pubsub

import (
	"context"
	"sync"
)

// Ack is the server acknowledgement of a forwarded command.
type Ack struct {
	Command string
	Args    []string
}

// Future is a one-shot completion handle produced by a transport send. It is
// resolved or rejected exactly once; later completions are no-ops. Safe for
// concurrent use.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future with a value.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Reject completes the future with an error.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future has completed either way.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx is cancelled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// RejectedFuture returns an already-failed future.
func RejectedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}
