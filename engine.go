package scripthost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/document"
	"github.com/cryguy/scripthost/internal/eventloop"
	"github.com/cryguy/scripthost/internal/task"
	"github.com/cryguy/scripthost/internal/webapi"
)

// DocumentInfo describes a document loaded into an engine.
type DocumentInfo = core.DocumentInfo

// Engine is a bootstrapped script engine. All work is marshalled onto the
// executor of its host, so the underlying runtime is only touched from one
// goroutine. Methods must not be called from code already running on that
// executor.
type Engine struct {
	exec    task.Executor
	rt      core.JSRuntime
	el      *eventloop.EventLoop
	loader  *document.Loader
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	docs   []DocumentInfo
	closed bool
}

// Eval runs src as a global script and returns its completion value as a
// string. A returned promise is awaited. Script faults are returned as
// *ScriptError. Cancelling ctx abandons the wait only.
func (e *Engine) Eval(ctx context.Context, src string) (string, error) {
	return task.Call(ctx, e.exec, func() (string, error) {
		return e.evaluate(src, "")
	})
}

// ExecuteDocument loads the named document from the search path and runs
// it.
func (e *Engine) ExecuteDocument(ctx context.Context, name string) error {
	_, err := task.Call(ctx, e.exec, func() (struct{}, error) {
		return struct{}{}, e.executeDocument(name)
	})
	return err
}

// Documents lists the documents loaded so far, in load order.
func (e *Engine) Documents() []DocumentInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DocumentInfo(nil), e.docs...)
}

// SearchPath returns the absolute document search path.
func (e *Engine) SearchPath() []string {
	return e.loader.SearchPath()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) executeDocument(name string) error {
	if e.isClosed() {
		return ErrClosed
	}
	doc, err := e.loader.Load(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.docs = append(e.docs, doc.Info)
	e.mu.Unlock()

	e.logger.Debug("executing document", "name", name, "url", doc.Info.URI, "bundled", doc.Bundled)
	_, err = e.evaluate(doc.Source, doc.Info.URI)
	return err
}

// evaluate runs on the executor goroutine. The budget covers the script,
// the microtasks it queues and, when it returned a promise, the timers that
// fire until the promise settles. A plain result only lets overdue timers
// run, so a repeating timer never holds an evaluation open.
func (e *Engine) evaluate(src, origin string) (value string, err error) {
	if e.isClosed() {
		return "", ErrClosed
	}

	start := time.Now()
	wd := newWatchdog(e.rt, e.timeout)
	defer func() {
		r := recover()
		switch {
		case wd.stop():
			err = e.timeoutError(origin)
		case r != nil:
			err = fmt.Errorf("script engine panic: %v", r)
		default:
			return
		}
		// An interrupted or panicked runtime is not reused.
		e.logger.Warn("discarding script engine", "document", origin, "error", err)
		_ = e.close()
	}()

	value, pending, err := webapi.Evaluate(wd, src, origin)
	if err != nil {
		return "", e.scriptError(err, origin)
	}
	wd.RunMicrotasks()

	onError := func(err error) {
		e.logger.Warn("timer callback failed", "document", origin, "error", err)
	}
	if !pending {
		e.el.Drain(wd, time.Now(), nil, onError)
		return value, nil
	}

	settled := func() bool { return !webapi.Pending(e.rt) }
	e.el.Drain(wd, start.Add(e.timeout), settled, onError)
	value, err = webapi.Settle(e.rt)
	if err != nil {
		return "", e.scriptError(err, origin)
	}
	return value, nil
}

func (e *Engine) timeoutError(origin string) *ScriptError {
	return &ScriptError{
		Name:     "TimeoutError",
		Message:  fmt.Sprintf("execution timed out (limit: %v)", e.timeout),
		Document: origin,
		Timeout:  true,
	}
}

// scriptError converts an evaluation failure into a *ScriptError.
func (e *Engine) scriptError(err error, origin string) error {
	if errors.Is(err, errBudgetSpent) {
		return e.timeoutError(origin)
	}
	var fault *core.Fault
	if errors.As(err, &fault) {
		return &ScriptError{
			Name:     fault.Name,
			Message:  fault.Message,
			Stack:    fault.Stack,
			Document: origin,
		}
	}
	return &ScriptError{Message: err.Error(), Document: origin}
}

// close releases the runtime. It runs on the executor goroutine.
func (e *Engine) close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.el.Reset()
	return e.rt.Close()
}
