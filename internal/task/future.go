package task

import (
	"context"
	"fmt"
)

// Future holds the outcome of a function that runs exactly once on an
// Executor. The outcome is written once and then only read, so any number of
// goroutines may wait on it.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Start submits fn to exec and returns its future immediately. If exec
// refuses the submission, the future completes with that error.
func Start[T any](exec Executor, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	err := exec.Submit(func() {
		var v T
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			f.complete(v, err)
		}()
		v, err = fn()
	})
	if err != nil {
		var zero T
		f.complete(zero, fmt.Errorf("scheduling task: %w", err))
	}
	return f
}

// Completed returns a future that already holds v and err.
func Completed[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.complete(v, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the outcome is available or ctx is done. A done context
// only abandons this wait; the task itself keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Call runs fn on exec and waits for it. Cancelling ctx abandons the wait
// but fn still runs to completion.
func Call[T any](ctx context.Context, exec Executor, fn func() (T, error)) (T, error) {
	return Start(exec, fn).Wait(ctx)
}
