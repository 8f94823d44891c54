package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cryguy/scripthost"
)

func writeScriptsDir(t *testing.T, bootstrap string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, scripthost.DefaultBootstrapDocument), []byte(bootstrap), 0o644); err != nil {
		t.Fatalf("write bootstrap: %v", err)
	}
	return dir
}

func TestRunCLIRequiresCommand(t *testing.T) {
	var stderr bytes.Buffer
	if err := runCLI(context.Background(), []string{"scripthost"}, &bytes.Buffer{}, &stderr); err == nil {
		t.Fatalf("expected usage error")
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Fatalf("usage not printed: %q", stderr.String())
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	err := runCLI(context.Background(), []string{"scripthost", "bogus"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || err.Error() != "invalid command" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCLIHelp(t *testing.T) {
	var stderr bytes.Buffer
	if err := runCLI(context.Background(), []string{"scripthost", "help"}, &bytes.Buffer{}, &stderr); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "repl") {
		t.Fatalf("help missing commands: %q", stderr.String())
	}
}

func TestRunCommandDefaultScript(t *testing.T) {
	dir := writeScriptsDir(t, `function command1() {
	extension.Output.WriteLine('command1 ran');
	return 'done';
}`)

	var stdout, stderr bytes.Buffer
	err := runCLI(context.Background(), []string{"scripthost", "run", "-scripts", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v (stderr: %s)", err, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "done" {
		t.Fatalf("stdout = %q, want done", got)
	}
	if !strings.Contains(stderr.String(), "[Scripts] command1 ran") {
		t.Fatalf("channel output missing: %q", stderr.String())
	}
}

func TestRunCommandScriptFromFile(t *testing.T) {
	dir := writeScriptsDir(t, `var base = 40;`)
	script := filepath.Join(t.TempDir(), "script.js")
	if err := os.WriteFile(script, []byte("base + 2"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	var stdout bytes.Buffer
	err := runCLI(context.Background(), []string{"scripthost", "run", "-scripts", dir, "-file", script}, &stdout, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "42" {
		t.Fatalf("stdout = %q, want 42", got)
	}
}

func TestRunCommandFaultIsExecutionError(t *testing.T) {
	dir := writeScriptsDir(t, ``)

	var stderr bytes.Buffer
	err := runCLI(context.Background(), []string{"scripthost", "run", "-scripts", dir, "throw new Error('broken')"}, &bytes.Buffer{}, &stderr)
	if !errors.Is(err, scripthost.ErrEngineExecution) {
		t.Fatalf("expected engine execution error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "broken") {
		t.Fatalf("fault not shown: %q", stderr.String())
	}
}

func TestRunCommandBootstrapFailureReported(t *testing.T) {
	dir := writeScriptsDir(t, `throw new Error('bad init')`)

	var stderr bytes.Buffer
	err := runCLI(context.Background(), []string{"scripthost", "run", "-scripts", dir}, &bytes.Buffer{}, &stderr)
	if !errors.Is(err, scripthost.ErrBootstrapExecution) {
		t.Fatalf("expected bootstrap execution error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "[Scripts] ScriptError: bad init") {
		t.Fatalf("bootstrap fault line missing: %q", stderr.String())
	}
}

func TestRunCommandRejectsBadTimeout(t *testing.T) {
	err := runCLI(context.Background(), []string{"scripthost", "run", "-timeout", "nope"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected flag parse error")
	}
}

func TestOutputCommandReadsPersistedLines(t *testing.T) {
	dir := writeScriptsDir(t, `extension.Output.WriteLine('booted');`)
	db := filepath.Join(t.TempDir(), "out.db")

	if err := runCLI(context.Background(), []string{"scripthost", "run", "-scripts", dir, "-output-db", db, "1"}, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var channels bytes.Buffer
	if err := runCLI(context.Background(), []string{"scripthost", "output", "-output-db", db}, &channels, &bytes.Buffer{}); err != nil {
		t.Fatalf("output failed: %v", err)
	}
	if got := strings.TrimSpace(channels.String()); got != scripthost.DefaultOutputChannel {
		t.Fatalf("channels = %q", got)
	}

	var lines bytes.Buffer
	if err := runCLI(context.Background(), []string{"scripthost", "output", "-output-db", db, scripthost.DefaultOutputChannel}, &lines, &bytes.Buffer{}); err != nil {
		t.Fatalf("output failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines.String()), " booted") {
		t.Fatalf("lines = %q", lines.String())
	}
}

func TestOutputCommandRequiresStore(t *testing.T) {
	err := runCLI(context.Background(), []string{"scripthost", "output"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "output-db") {
		t.Fatalf("unexpected error: %v", err)
	}
}
