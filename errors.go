package scripthost

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument reports a nil or empty required input. It is
	// detected synchronously, before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidConfig reports a Config that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrPathResolution reports that the install location of the host could
	// not be determined. It is logged, never returned: the host falls back
	// to ./scripts.
	ErrPathResolution = errors.New("cannot resolve install location")
	// ErrBootstrapExecution reports that the bootstrap document raised a
	// script-level fault.
	ErrBootstrapExecution = errors.New("bootstrap document failed")
	// ErrBootstrapLoad reports that the engine could not be prepared or the
	// bootstrap document could not be loaded.
	ErrBootstrapLoad = errors.New("bootstrap document could not be loaded")
	// ErrEngineExecution reports a fault raised by script code.
	ErrEngineExecution = errors.New("script execution failed")
	// ErrTimeout reports a script interrupted by the execution watchdog.
	ErrTimeout = errors.New("script execution timed out")
	// ErrClosed is returned by an Engine after its host was closed or its
	// runtime was discarded following a timeout.
	ErrClosed = errors.New("script host is closed")
)

// ScriptError is a fault raised by the script engine while running code.
type ScriptError struct {
	Name     string // exception class, e.g. "TypeError"; may be empty
	Message  string
	Stack    string
	Document string // URI of the document, empty for ad-hoc evaluation
	Timeout  bool   // the watchdog interrupted the script
}

func (e *ScriptError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// Is matches ErrEngineExecution, and ErrTimeout for interrupted scripts.
func (e *ScriptError) Is(target error) bool {
	return target == ErrEngineExecution || (e.Timeout && target == ErrTimeout)
}

// BootstrapError records why host initialization failed. It matches
// ErrBootstrapExecution when the cause is a *ScriptError and
// ErrBootstrapLoad otherwise.
type BootstrapError struct {
	Document string
	Err      error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s: %v", e.Document, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

func (e *BootstrapError) Is(target error) bool {
	var se *ScriptError
	if errors.As(e.Err, &se) {
		return target == ErrBootstrapExecution
	}
	return target == ErrBootstrapLoad
}

// faultLine is the single diagnostic line written for a failed bootstrap.
func (e *BootstrapError) faultLine() string {
	var se *ScriptError
	if errors.As(e.Err, &se) {
		return "ScriptError: " + firstLine(se.Message)
	}
	return "Error: " + firstLine(e.Err.Error())
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
