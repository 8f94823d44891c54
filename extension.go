package scripthost

import (
	"context"
	"fmt"

	"github.com/cryguy/scripthost/internal/task"
	"github.com/cryguy/scripthost/output"
)

// Services is the slice of the host application the extension object
// draws on. Scripts never see it directly.
type Services interface {
	Executor() Executor
	OutputFactory() output.Factory
}

type services struct {
	exec    Executor
	factory output.Factory
}

// NewServices bundles an executor and an output channel factory.
func NewServices(exec Executor, factory output.Factory) Services {
	return &services{exec: exec, factory: factory}
}

func (s *services) Executor() Executor             { return s.exec }
func (s *services) OutputFactory() output.Factory { return s.factory }

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// WithChannelName sets the name of the output channel.
func WithChannelName(name string) ExtensionOption {
	return func(x *Extension) { x.name = name }
}

// Extension is the capability object installed as the extension global.
// It exposes a write-only output sink whose channel is created
// asynchronously when the Extension is constructed.
type Extension struct {
	name    string
	channel *task.Future[output.Channel]
}

// NewExtension schedules creation of the output channel on the services'
// executor and returns without waiting for it.
func NewExtension(svc Services, opts ...ExtensionOption) (*Extension, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: services is nil", ErrInvalidArgument)
	}
	exec, factory := svc.Executor(), svc.OutputFactory()
	if exec == nil || factory == nil {
		return nil, fmt.Errorf("%w: services must provide an executor and an output factory", ErrInvalidArgument)
	}

	x := &Extension{name: DefaultOutputChannel}
	for _, opt := range opts {
		opt(x)
	}
	if x.name == "" {
		return nil, fmt.Errorf("%w: output channel name is empty", ErrInvalidArgument)
	}

	name := x.name
	x.channel = task.Start(exec, func() (output.Channel, error) {
		ch, err := factory.CreateChannel(context.Background(), name)
		if err != nil {
			return nil, fmt.Errorf("creating output channel %q: %w", name, err)
		}
		return ch, nil
	})
	return x, nil
}

// ChannelName returns the name of the output channel.
func (x *Extension) ChannelName() string { return x.name }

// Output blocks until the output channel exists and returns its writer.
// Every caller gets the same writer. A failed creation is returned to
// every caller.
func (x *Extension) Output(ctx context.Context) (output.Writer, error) {
	ch, err := x.channel.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return ch.Writer(), nil
}

// Flush writes out a trailing partial line, if any.
func (x *Extension) Flush(ctx context.Context) error {
	ch, err := x.channel.Wait(ctx)
	if err != nil {
		return err
	}
	return ch.Close()
}
