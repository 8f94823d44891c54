package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	_ Factory = (*StreamFactory)(nil)
	_ Factory = (*MemoryFactory)(nil)
)

// StreamFactory writes every channel to one io.Writer, prefixing each line
// with the channel name.
type StreamFactory struct {
	mu  sync.Mutex // serializes writes from different channels
	out io.Writer
}

// NewStreamFactory returns a factory writing to out.
func NewStreamFactory(out io.Writer) *StreamFactory {
	return &StreamFactory{out: out}
}

func (f *StreamFactory) CreateChannel(_ context.Context, name string) (Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("output channel name must not be empty")
	}
	return &channel{
		name: name,
		w: newLineWriter(func(line string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			_, err := fmt.Fprintf(f.out, "[%s] %s\n", name, line)
			return err
		}),
	}, nil
}

// MemoryFactory keeps every line in memory. Used by tests and the REPL.
type MemoryFactory struct {
	mu      sync.Mutex
	lines   map[string][]string
	created map[string]int
}

// NewMemoryFactory returns an empty in-memory factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{
		lines:   make(map[string][]string),
		created: make(map[string]int),
	}
}

func (f *MemoryFactory) CreateChannel(_ context.Context, name string) (Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("output channel name must not be empty")
	}
	f.mu.Lock()
	f.created[name]++
	f.mu.Unlock()
	return &channel{
		name: name,
		w: newLineWriter(func(line string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.lines[name] = append(f.lines[name], line)
			return nil
		}),
	}, nil
}

// Lines returns a copy of the lines written to the named channel.
func (f *MemoryFactory) Lines(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines[name]...)
}

// Created reports how many times a channel with the given name was created.
func (f *MemoryFactory) Created(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[name]
}

// Tee returns a factory whose channels write every line to a channel of
// each of factories. Creation fails if any factory fails.
func Tee(factories ...Factory) Factory {
	return teeFactory(factories)
}

type teeFactory []Factory

func (t teeFactory) CreateChannel(ctx context.Context, name string) (Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("output channel name must not be empty")
	}
	chans := make([]Channel, 0, len(t))
	for _, f := range t {
		ch, err := f.CreateChannel(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("creating channel %q: %w", name, err)
		}
		chans = append(chans, ch)
	}
	return &teeChannel{
		channel: channel{
			name: name,
			w: newLineWriter(func(line string) error {
				var errs []error
				for _, ch := range chans {
					errs = append(errs, ch.Writer().WriteLine(line))
				}
				return errors.Join(errs...)
			}),
		},
		chans: chans,
	}, nil
}

type teeChannel struct {
	channel
	chans []Channel
}

func (c *teeChannel) Close() error {
	errs := []error{c.channel.Close()}
	for _, ch := range c.chans {
		errs = append(errs, ch.Close())
	}
	return errors.Join(errs...)
}
