// Package scripthost embeds a JavaScript engine in a Go application.
//
// A Host starts engine initialization in the background as soon as it is
// constructed: it creates the runtime, installs the extension, URL, console
// and timer globals, then executes the bootstrap document (__init__.js)
// from the scripts directory. The outcome is recorded once. Engine blocks
// until it is available and returns the same engine, or the same error, to
// every caller.
//
//	exec := scripthost.NewSerialExecutor()
//	defer exec.Close()
//	ext, _ := scripthost.NewExtension(scripthost.NewServices(exec, output.NewStreamFactory(os.Stderr)))
//	host, _ := scripthost.New(exec, ext)
//	defer host.Close()
//	result, err := host.Run(ctx, "command1()")
package scripthost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/document"
	"github.com/cryguy/scripthost/internal/eventloop"
	"github.com/cryguy/scripthost/internal/task"
	"github.com/cryguy/scripthost/internal/webapi"
)

// Host owns the lifecycle of one script engine.
//
// Engine, Run and Close block on work submitted to the host executor and
// must not be called from code running on that executor, such as a Go
// function invoked by a script.
type Host struct {
	exec       Executor
	ext        *Extension
	cfg        Config
	logger     *slog.Logger
	newRuntime core.RuntimeFactory
	executable func() (string, error)

	engine    *task.Future[*Engine]
	closeOnce sync.Once
	closeErr  error
}

// New validates its arguments and starts initialization on exec. It never
// waits for initialization.
func New(exec Executor, ext *Extension, opts ...Option) (*Host, error) {
	if exec == nil {
		return nil, fmt.Errorf("%w: executor is nil", ErrInvalidArgument)
	}
	if ext == nil {
		return nil, fmt.Errorf("%w: extension is nil", ErrInvalidArgument)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Host{
		exec:       exec,
		ext:        ext,
		cfg:        o.cfg,
		logger:     o.logger,
		newRuntime: o.newRuntime,
		executable: o.executable,
	}
	h.engine = task.Start(exec, h.initialize)
	return h, nil
}

// Engine blocks until initialization finished and returns its outcome.
// A done ctx abandons the wait and returns ctx.Err(); initialization keeps
// running. There is no retry: a failure is returned on every call.
func (h *Host) Engine(ctx context.Context) (*Engine, error) {
	return h.engine.Wait(ctx)
}

// Run waits for the engine and evaluates script on it.
func (h *Host) Run(ctx context.Context, script string) (string, error) {
	eng, err := h.Engine(ctx)
	if err != nil {
		return "", err
	}
	return eng.Eval(ctx, script)
}

// Close waits for initialization and releases the engine. The executor is
// left running.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		eng, err := h.engine.Wait(context.Background())
		if err != nil {
			return
		}
		_, h.closeErr = task.Call(context.Background(), h.exec, func() (struct{}, error) {
			return struct{}{}, eng.close()
		})
	})
	return h.closeErr
}

// initialize runs once on the host executor.
func (h *Host) initialize() (*Engine, error) {
	name := h.cfg.BootstrapDocument
	dir := h.scriptsDir()

	loader, err := document.NewLoader(document.Options{
		SearchPath:        []string{dir},
		EnableFileLoading: true,
		Metadata:          document.URLMetadata,
	})
	if err != nil {
		return nil, h.fail(name, err)
	}

	rt, err := h.newRuntime(h.cfg.engineConfig())
	if err != nil {
		return nil, h.fail(name, fmt.Errorf("creating %s runtime: %w", Backend, err))
	}

	eng := &Engine{
		exec:    h.exec,
		rt:      rt,
		el:      eventloop.New(),
		loader:  loader,
		timeout: h.cfg.ExecutionTimeout,
		logger:  h.logger,
	}

	setups := []webapi.SetupFunc{
		webapi.Extension(h.ext),
		webapi.SetupURL,
		webapi.Console(h.ext, h.logger),
		webapi.SetupTimers,
	}
	for _, setup := range setups {
		if err := setup(rt, eng.el); err != nil {
			_ = eng.close()
			return nil, h.fail(name, fmt.Errorf("installing globals: %w", err))
		}
	}

	if err := eng.executeDocument(name); err != nil {
		_ = eng.close()
		return nil, h.fail(name, err)
	}

	h.logger.Info("script engine ready", "backend", Backend, "scripts", loader.SearchPath(), "bootstrap", name)
	return eng, nil
}

// scriptsDir resolves the document search path.
func (h *Host) scriptsDir() string {
	if h.cfg.ScriptsDir != "" {
		return h.cfg.ScriptsDir
	}
	exe, err := h.executable()
	if err != nil {
		h.logger.Warn("using ./scripts as the scripts directory",
			"error", fmt.Errorf("%w: %w", ErrPathResolution, err))
		return "scripts"
	}
	return filepath.Join(filepath.Dir(exe), "scripts")
}

// fail records a bootstrap failure on the output channel and returns it.
func (h *Host) fail(name string, err error) error {
	berr := &BootstrapError{Document: name, Err: err}
	h.logger.Error("script engine initialization failed",
		"bootstrap", name, "error", err, "script_fault", errors.Is(berr, ErrBootstrapExecution))

	w, werr := h.ext.Output(context.Background())
	if werr == nil {
		werr = w.WriteLine(berr.faultLine())
	}
	if werr != nil {
		h.logger.Warn("could not write bootstrap failure to output", "error", werr)
	}
	return berr
}
