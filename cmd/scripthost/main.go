package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cryguy/scripthost"
	"github.com/cryguy/scripthost/output"
)

// defaultCommand is evaluated by run when no script is given.
const defaultCommand = "command1()"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runCLI(ctx, os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 2 {
		return usageError(stderr)
	}
	switch args[1] {
	case "run":
		return runCommand(ctx, args[2:], stdout, stderr)
	case "repl":
		return replCommand(args[2:], stderr)
	case "output":
		return outputCommand(ctx, args[2:], stdout)
	case "help", "-h", "--help":
		printUsage(stderr)
		return nil
	default:
		return usageError(stderr)
	}
}

// hostFlags are shared by the subcommands that start a host.
type hostFlags struct {
	config   string
	scripts  string
	outputDB string
	timeout  time.Duration
	verbose  bool
}

func (f *hostFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.scripts, "scripts", "", "scripts directory (default: scripts next to the executable)")
	fs.StringVar(&f.outputDB, "output-db", "", "SQLite file persisting output channels")
	fs.DurationVar(&f.timeout, "timeout", 0, "execution timeout per evaluation")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
}

// load reads the config file, if any, and applies flag overrides.
func (f *hostFlags) load() (scripthost.Config, error) {
	cfg := scripthost.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = scripthost.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	if f.scripts != "" {
		cfg.ScriptsDir = f.scripts
	}
	if f.outputDB != "" {
		cfg.OutputDB = f.outputDB
	}
	if f.timeout > 0 {
		cfg.ExecutionTimeout = f.timeout
	}
	return cfg, cfg.Validate()
}

func (f *hostFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is a running host together with what it was built from.
type session struct {
	exec  *scripthost.SerialExecutor
	ext   *scripthost.Extension
	host  *scripthost.Host
	store *output.SQLiteStore
}

func openSession(cfg scripthost.Config, logger *slog.Logger, diag io.Writer) (*session, error) {
	var factory output.Factory = output.NewStreamFactory(diag)
	s := &session{}
	if cfg.OutputDB != "" {
		store, err := output.OpenSQLite(cfg.OutputDB)
		if err != nil {
			return nil, err
		}
		s.store = store
		factory = output.Tee(factory, store)
	}

	s.exec = scripthost.NewSerialExecutor()
	ext, err := scripthost.NewExtension(scripthost.NewServices(s.exec, factory),
		scripthost.WithChannelName(cfg.OutputChannel))
	if err != nil {
		s.close()
		return nil, err
	}
	s.ext = ext

	host, err := scripthost.New(s.exec, ext, scripthost.WithConfig(cfg), scripthost.WithLogger(logger))
	if err != nil {
		s.close()
		return nil, err
	}
	s.host = host
	return s, nil
}

func (s *session) close() {
	if s.host != nil {
		_ = s.host.Close()
	}
	if s.ext != nil {
		_ = s.ext.Flush(context.Background())
	}
	if s.exec != nil {
		_ = s.exec.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var hf hostFlags
	hf.register(fs)
	file := fs.String("file", "", "read the script from a file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	script := defaultCommand
	switch {
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(data)
	case fs.NArg() > 0:
		script = fs.Arg(0)
	}

	cfg, err := hf.load()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, hf.logger(stderr), stderr)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.host.Run(ctx, script)
	if err != nil {
		if errors.Is(err, scripthost.ErrEngineExecution) {
			showMessage(stderr, err)
		}
		return fmt.Errorf("execution failed: %w", err)
	}
	if result != "" {
		fmt.Fprintln(stdout, result)
	}
	return nil
}

// showMessage presents a script fault to the user before it propagates.
func showMessage(w io.Writer, err error) {
	var se *scripthost.ScriptError
	if !errors.As(err, &se) {
		return
	}
	fmt.Fprintln(w, errorStyle.Render("✗ "+se.Error()))
	if se.Stack != "" {
		fmt.Fprintln(w, mutedStyle.Render(se.Stack))
	}
}

func outputCommand(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("output", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	config := fs.String("config", "", "YAML configuration file")
	db := fs.String("output-db", "", "SQLite file persisting output channels")
	limit := fs.Int("limit", 50, "number of trailing lines to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *db
	if path == "" && *config != "" {
		cfg, err := scripthost.LoadConfig(*config)
		if err != nil {
			return err
		}
		path = cfg.OutputDB
	}
	if path == "" {
		return errors.New("scripthost output: -output-db or a config with output_db is required")
	}

	store, err := output.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if fs.NArg() == 0 {
		names, err := store.Channels(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	lines, err := store.Lines(ctx, fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintf(stdout, "%s %s\n", l.Time.Format(time.RFC3339), l.Text)
	}
	return nil
}

func usageError(w io.Writer) error {
	printUsage(w)
	return errors.New("invalid command")
}

func printUsage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n", prog)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintf(w, "  run [flags] [script]     evaluate script after bootstrap (default %q)\n", defaultCommand)
	fmt.Fprintln(w, "  repl [flags]             interactive session")
	fmt.Fprintln(w, "  output [flags] [channel] list persisted output channels or their lines")
	fmt.Fprintln(w, "Host flags:")
	fmt.Fprintln(w, "  -config <file>     YAML configuration file")
	fmt.Fprintln(w, "  -scripts <dir>     scripts directory")
	fmt.Fprintln(w, "  -output-db <file>  SQLite file persisting output channels")
	fmt.Fprintln(w, "  -timeout <dur>     execution timeout per evaluation")
	fmt.Fprintln(w, "  -v                 debug logging")
}
