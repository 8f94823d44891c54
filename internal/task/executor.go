// Package task provides the background execution context used for all
// asynchronous script-host setup and the write-once future that synchronous
// callers block on.
package task

import (
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by Submit after the executor has been closed.
var ErrClosed = errors.New("executor is closed")

// Executor runs submitted functions asynchronously.
type Executor interface {
	// Submit schedules fn. It never waits for fn to run.
	Submit(fn func()) error
}

// SerialExecutor runs submitted functions one at a time, in submission
// order, on a single goroutine locked to its OS thread. JS engines are not
// safe for concurrent use and V8 isolates are thread-affine, so every engine
// operation of a host goes through one SerialExecutor.
type SerialExecutor struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSerialExecutor starts the executor goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Submit enqueues fn. Submissions are never dropped or reordered; the queue
// is unbounded so Submit never blocks.
func (e *SerialExecutor) Submit(fn func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.queue = append(e.queue, fn)
	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.mu.Unlock()
	return nil
}

// Close stops accepting work, runs everything already queued, and waits for
// the goroutine to exit. Close must not be called from a submitted function.
func (e *SerialExecutor) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.wake)
	}
	e.mu.Unlock()
	<-e.done
	return nil
}

func (e *SerialExecutor) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.done)

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			<-e.wake
			continue
		}
		fn := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		fn()
	}
}

// GoExecutor runs every submitted function on a new goroutine.
type GoExecutor struct{}

func (GoExecutor) Submit(fn func()) error {
	go fn()
	return nil
}
