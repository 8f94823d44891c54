//go:build !v8

package quickjs

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// errNoJobQueue is returned by New when the VM layout does not expose the
// handles the job queue needs.
var errNoJobQueue = errors.New("quickjs: pending-job queue not reachable")

// jobQueue runs the engine's pending jobs (promise reactions). The Go
// wrapper never calls JS_ExecutePendingJob itself, so without this queue no
// promise would ever settle.
type jobQueue struct {
	cRuntime uintptr
	tls      *libc.TLS
}

// newJobQueue reads the C runtime handle and the TLS out of the VM's
// unexported runtime field:
//
//	type VM struct { ...; runtime *runtime; ... }
//	type runtime struct { cRuntime uintptr; tls *libc.TLS }
//
// The layout is the one of modernc.org/quickjs v0.17.
func newJobQueue(vm *quickjs.VM) (jobQueue, error) {
	rtField := reflect.ValueOf(vm).Elem().FieldByName("runtime")
	if !rtField.IsValid() || rtField.Kind() != reflect.Pointer || rtField.IsNil() {
		return jobQueue{}, fmt.Errorf("%w: VM.runtime missing", errNoJobQueue)
	}
	rt := reflect.NewAt(rtField.Type().Elem(), unsafe.Pointer(rtField.Pointer())).Elem()

	handle := rt.FieldByName("cRuntime")
	if !handle.IsValid() || handle.Kind() != reflect.Uintptr || handle.Uint() == 0 {
		return jobQueue{}, fmt.Errorf("%w: runtime.cRuntime missing", errNoJobQueue)
	}
	tls := rt.FieldByName("tls")
	if !tls.IsValid() || tls.Kind() != reflect.Pointer || tls.IsNil() {
		return jobQueue{}, fmt.Errorf("%w: runtime.tls missing", errNoJobQueue)
	}
	return jobQueue{
		cRuntime: uintptr(handle.Uint()),
		tls:      (*libc.TLS)(unsafe.Pointer(tls.Pointer())),
	}, nil
}

// drain runs jobs until the queue is empty or a job throws and returns how
// many ran.
func (q jobQueue) drain() int {
	n := 0
	for lib.XJS_ExecutePendingJob(q.tls, q.cRuntime, 0) > 0 {
		n++
	}
	return n
}
