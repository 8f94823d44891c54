package scripthost

import (
	"log/slog"
	"os"
	"time"

	"github.com/cryguy/scripthost/internal/core"
)

// Option configures a Host.
type Option func(*options)

type options struct {
	cfg        Config
	logger     *slog.Logger
	newRuntime core.RuntimeFactory
	executable func() (string, error)
}

func defaultOptions() options {
	return options{
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
		newRuntime: newRuntime,
		executable: os.Executable,
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithScriptsDir sets the document search path.
func WithScriptsDir(dir string) Option {
	return func(o *options) { o.cfg.ScriptsDir = dir }
}

// WithBootstrapDocument sets the document run during initialization.
func WithBootstrapDocument(name string) Option {
	return func(o *options) { o.cfg.BootstrapDocument = name }
}

// WithExecutionTimeout bounds every evaluation.
func WithExecutionTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.ExecutionTimeout = d }
}

// WithMemoryLimit caps the engine heap in megabytes.
func WithMemoryLimit(mb int) Option {
	return func(o *options) { o.cfg.MemoryLimitMB = mb }
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func withRuntimeFactory(f core.RuntimeFactory) Option {
	return func(o *options) { o.newRuntime = f }
}

func withExecutable(f func() (string, error)) Option {
	return func(o *options) { o.executable = f }
}
