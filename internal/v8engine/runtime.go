//go:build v8

// Package v8engine is the V8 script backend, selected with the v8 build tag.
package v8engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cryguy/scripthost/internal/core"
	v8 "github.com/tommie/v8go"
)

// Runtime implements core.JSRuntime for the V8 engine.
type Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context

	newTypeError *v8.Function // m => new TypeError(m)
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates an isolate and a context. A memory limit caps the V8 heap.
func New(cfg core.EngineConfig) (core.JSRuntime, error) {
	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	r := &Runtime{iso: iso, ctx: v8.NewContext(iso)}
	ctor, err := r.ctx.RunScript("(function(m) { return new TypeError(m); })", "type_error.js")
	if err == nil {
		r.newTypeError, err = ctor.AsFunction()
	}
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("creating V8 context: %w", err)
	}
	return r, nil
}

// throwTypeError schedules a TypeError carrying msg as the pending
// exception of the current callback.
func (r *Runtime) throwTypeError(msg string) {
	jsMsg, _ := v8.NewValue(r.iso, msg)
	if errObj, err := r.newTypeError.Call(v8.Undefined(r.iso), jsMsg); err == nil {
		r.iso.ThrowException(errObj)
		return
	}
	r.iso.ThrowException(jsMsg)
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	_, err := r.ctx.RunScript(js, "eval.js")
	return err
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

// RunScript compiles src as a script named origin and runs it in the
// global scope.
func (r *Runtime) RunScript(src, origin, result string) error {
	if origin == "" {
		origin = "script.js"
	}
	val, err := r.ctx.RunScript(src, origin)
	if err != nil {
		var jsErr *v8.JSError
		if !errors.As(err, &jsErr) {
			return err
		}
		f := core.ParseFault(jsErr.Message)
		if jsErr.StackTrace != "" {
			if _, stack, ok := strings.Cut(jsErr.StackTrace, "\n"); ok {
				f.Stack = strings.TrimSpace(stack)
			}
		}
		return f
	}
	if val == nil {
		val = v8.Undefined(r.iso)
	}
	return r.ctx.Global().Set(result, val)
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Uses reflection to inspect the Go function's signature and creates a
// V8 FunctionTemplate that marshals arguments and return values.
//
// Supported Go function signatures:
//   - func(args...): no return, JS function returns undefined
//   - func(args...) T: single return, JS function returns T
//   - func(args...) (T, error): on success returns T, on error throws TypeError
//
// Supported argument types: string, int, float64, bool
// Supported return types: string, int, float64, bool
func (r *Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()

		// Validate argument count: throw TypeError if fewer args than required.
		if len(args) < fnType.NumIn() {
			r.throwTypeError(fmt.Sprintf("%s requires at least %d argument(s), got %d", name, fnType.NumIn(), len(args)))
			return nil
		}

		// Build Go arguments from JS values.
		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			goArgs[i] = jsToGoArg(args[i], fnType.In(i))
		}

		results := fnVal.Call(goArgs)

		// Handle return values.
		switch fnType.NumOut() {
		case 0:
			return nil
		case 1:
			return goToJSValue(r.iso, results[0])
		case 2:
			// (T, error) pattern: throw on error, return T on success.
			errVal := results[1]
			if !errVal.IsNil() {
				errMsg := errVal.Interface().(error).Error()
				r.throwTypeError(fmt.Sprintf("calling %s: %s", name, errMsg))
				return nil
			}
			return goToJSValue(r.iso, results[0])
		default:
			return nil
		}
	})

	fnObj := tmpl.GetFunction(r.ctx)

	return r.ctx.Global().Set(name, fnObj)
}

// SetGlobal sets a global variable on the JS context.
func (r *Runtime) SetGlobal(name string, value any) error {
	jsVal, err := goAnyToJSValue(r.iso, r.ctx, value)
	if err != nil {
		return fmt.Errorf("converting value for %q: %w", name, err)
	}
	return r.ctx.Global().Set(name, jsVal)
}

// RunMicrotasks pumps the V8 microtask queue.
func (r *Runtime) RunMicrotasks() {
	r.ctx.PerformMicrotaskCheckpoint()
}

// Interrupt terminates the running script. Safe to call from any goroutine.
func (r *Runtime) Interrupt() {
	r.iso.TerminateExecution()
}

// Close disposes the context and the isolate.
func (r *Runtime) Close() error {
	r.ctx.Close()
	r.iso.Dispose()
	return nil
}

// jsToGoArg converts a V8 value to a Go reflect.Value of the expected type.
func jsToGoArg(val *v8.Value, targetType reflect.Type) reflect.Value {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(val.String())
	case reflect.Int:
		return reflect.ValueOf(int(val.Integer()))
	case reflect.Int64:
		return reflect.ValueOf(val.Integer())
	case reflect.Float64:
		return reflect.ValueOf(val.Number())
	case reflect.Bool:
		return reflect.ValueOf(val.Boolean())
	default:
		return reflect.Zero(targetType)
	}
}

// goToJSValue converts a Go reflect.Value to a V8 value.
func goToJSValue(iso *v8.Isolate, val reflect.Value) *v8.Value {
	if !val.IsValid() {
		return nil
	}
	switch val.Kind() {
	case reflect.String:
		v, _ := v8.NewValue(iso, val.String())
		return v
	case reflect.Int, reflect.Int64, reflect.Int32:
		v, _ := v8.NewValue(iso, int32(val.Int()))
		return v
	case reflect.Float64, reflect.Float32:
		v, _ := v8.NewValue(iso, val.Float())
		return v
	case reflect.Bool:
		v, _ := v8.NewValue(iso, val.Bool())
		return v
	default:
		return nil
	}
}

// goAnyToJSValue converts a Go any value to a V8 value.
func goAnyToJSValue(iso *v8.Isolate, ctx *v8.Context, value any) (*v8.Value, error) {
	if value == nil {
		return v8.Undefined(iso), nil
	}

	switch v := value.(type) {
	case string:
		return v8.NewValue(iso, v)
	case int:
		return v8.NewValue(iso, int32(v))
	case int32:
		return v8.NewValue(iso, v)
	case int64:
		return v8.NewValue(iso, int32(v))
	case float64:
		return v8.NewValue(iso, v)
	case bool:
		return v8.NewValue(iso, v)
	case *v8.Value:
		return v, nil
	case *v8.Object:
		return v.Value, nil
	default:
		// For complex types, serialize to JSON and parse in JS.
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshaling value: %w", err)
		}
		script := fmt.Sprintf("JSON.parse(%s)", strconv.Quote(string(data)))
		return ctx.RunScript(script, "set_global.js")
	}
}
