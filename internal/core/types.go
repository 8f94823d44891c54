package core

import (
	"fmt"
	"regexp"
	"strings"
)

// DocumentInfo describes a document that was executed in a runtime.
type DocumentInfo struct {
	Name string            // name relative to the search path
	URI  string            // file:// URI of the resolved document
	Meta map[string]string // metadata handed to the document, e.g. {"url": URI}
}

// Fault is a script-level exception captured from a runtime, as opposed to
// a failure of the engine itself.
type Fault struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

func (f *Fault) Error() string {
	if f.Name == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Message)
}

var faultName = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*(Error|Exception)$`)

// ParseFault rebuilds a Fault from the text an engine reports for an
// uncaught exception: "Name: message" on the first line, the stack after
// it. A thrown non-error value has no name.
func ParseFault(text string) *Fault {
	text = strings.TrimPrefix(strings.TrimSpace(text), "Uncaught ")
	first, stack, _ := strings.Cut(text, "\n")
	f := &Fault{Message: first, Stack: strings.TrimSpace(stack)}
	if name, msg, ok := strings.Cut(first, ": "); ok && faultName.MatchString(name) {
		f.Name, f.Message = name, msg
	} else if faultName.MatchString(first) {
		f.Name, f.Message = first, ""
	}
	return f
}
