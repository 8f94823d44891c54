//go:build !v8

// Package quickjs is the default script backend, built on the pure-Go
// modernc.org/quickjs engine.
package quickjs

import (
	"fmt"

	"github.com/cryguy/scripthost/internal/core"
	"modernc.org/quickjs"
)

// Runtime implements core.JSRuntime for the QuickJS engine.
type Runtime struct {
	vm   *quickjs.VM
	jobs jobQueue
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a QuickJS VM with the configured memory limit.
func New(cfg core.EngineConfig) (core.JSRuntime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	jobs, err := newJobQueue(vm)
	if err != nil {
		vm.Close()
		return nil, err
	}
	if cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.MemoryLimitMB) * 1024 * 1024)
	}
	return &Runtime{vm: vm, jobs: jobs}, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// RunScript runs src as a global script. The wrapper has no way to name a
// script, so origin is carried by a sourceURL comment added by the caller.
func (r *Runtime) RunScript(src, _, result string) error {
	v, err := r.vm.EvalValue(src, quickjs.EvalGlobal)
	if err != nil {
		return core.ParseFault(err.Error())
	}
	defer v.Free()
	return r.SetGlobal(result, v)
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are automatically unwrapped: on success
// returns T, on error throws a TypeError. This is necessary because the
// QuickJS Go wrapper returns multi-value results as JS arrays.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// SetGlobal sets a global property on the VM's global object.
func (r *Runtime) SetGlobal(name string, value any) error {
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// RunMicrotasks pumps the QuickJS microtask queue.
func (r *Runtime) RunMicrotasks() {
	r.jobs.drain()
}

// Interrupt aborts the running script. Safe to call from any goroutine.
func (r *Runtime) Interrupt() {
	r.vm.Interrupt()
}

// Close frees the VM.
func (r *Runtime) Close() error {
	r.vm.Close()
	return nil
}
