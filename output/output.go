// Package output provides named, append-only text channels used as the
// diagnostic sink of a script host.
//
// A Factory creates channels by name; each Channel hands out a Writer that
// accepts arbitrary text and emits complete lines to the backing store.
package output

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Writer is the text sink exposed to scripts.
type Writer interface {
	io.Writer
	io.StringWriter
	// WriteLine writes s followed by a line terminator.
	WriteLine(s string) error
}

// Channel is a named output channel.
type Channel interface {
	Name() string
	Writer() Writer
	// Close flushes any partial line.
	Close() error
}

// Factory creates output channels. Implementations must be safe for
// concurrent use.
type Factory interface {
	CreateChannel(ctx context.Context, name string) (Channel, error)
}

// lineWriter buffers text until a newline and passes each complete line,
// without its terminator, to emit.
type lineWriter struct {
	mu      sync.Mutex
	pending strings.Builder
	emit    func(line string) error
}

func newLineWriter(emit func(line string) error) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	return w.WriteString(string(p))
}

// WriteString emits every completed line. When emit fails, the count covers
// the lines emitted before the failing one.
func (w *lineWriter) WriteString(s string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rest := s
	for {
		i := strings.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		w.pending.WriteString(strings.TrimSuffix(rest[:i], "\r"))
		line := w.pending.String()
		w.pending.Reset()
		if err := w.emit(line); err != nil {
			return len(s) - len(rest), err
		}
		rest = rest[i+1:]
	}
	w.pending.WriteString(rest)
	return len(s), nil
}

func (w *lineWriter) WriteLine(s string) error {
	_, err := w.WriteString(s + "\n")
	return err
}

// flush emits a trailing partial line, if any.
func (w *lineWriter) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Len() == 0 {
		return nil
	}
	line := w.pending.String()
	w.pending.Reset()
	return w.emit(line)
}

// channel is the Channel implementation shared by the factories in this
// package.
type channel struct {
	name string
	w    *lineWriter
}

func (c *channel) Name() string   { return c.name }
func (c *channel) Writer() Writer { return c.w }
func (c *channel) Close() error   { return c.w.flush() }
