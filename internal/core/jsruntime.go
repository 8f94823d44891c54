package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) behind a
// common interface used by shared setup functions in internal/webapi
// and the shared event loop in internal/eventloop.
//
// A JSRuntime is not safe for concurrent use. Every call except Interrupt
// must happen on the goroutine that owns the runtime.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// RunScript runs src as a classic global script, so its top-level
	// declarations, lexical ones included, outlive the call. origin names
	// the script in stack traces. The completion value is stored in the
	// global named by result. An uncaught exception is returned as *Fault.
	RunScript(src, origin, result string) error

	// RegisterFunc registers a Go function as a global JavaScript function.
	// The function's Go types are automatically marshaled to/from JS types.
	// On error return, the JS wrapper throws a TypeError instead of
	// returning an array.
	RegisterFunc(name string, fn any) error

	// SetGlobal sets a global variable on the JS context. Basic Go types
	// (string, int, float64, bool) are auto-converted to JS types.
	SetGlobal(name string, value any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks()

	// Interrupt aborts the script that is currently running. It is the
	// only method that may be called from another goroutine.
	Interrupt()

	// Close releases the engine. The runtime must not be used afterwards.
	Close() error
}

// RuntimeFactory creates a configured runtime.
type RuntimeFactory func(cfg EngineConfig) (JSRuntime, error)
