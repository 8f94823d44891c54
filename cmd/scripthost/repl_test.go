package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func fakeEval(results map[string]string) evalFunc {
	return func(_ context.Context, src string) (string, error) {
		if v, ok := results[src]; ok {
			return v, nil
		}
		return "", errors.New("ReferenceError: " + src + " is not defined")
	}
}

func noDocuments() []string { return nil }

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newREPLModel(fakeEval(nil), noDocuments)
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateHelpCommandTogglesHelp(t *testing.T) {
	m := newREPLModel(fakeEval(nil), noDocuments)
	m.textInput.SetValue(":help")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after command")
	}
}

func TestUpdateUnknownCommandRecordsError(t *testing.T) {
	m := newREPLModel(fakeEval(nil), noDocuments)
	m.textInput.SetValue(":bogus")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)

	if len(rm.history) != 1 || !rm.history[0].isErr {
		t.Fatalf("unexpected history: %#v", rm.history)
	}
	if !strings.Contains(rm.history[0].output, ":bogus") {
		t.Fatalf("unexpected output: %q", rm.history[0].output)
	}
}

func TestUpdateDocsCommandListsDocuments(t *testing.T) {
	docs := func() []string { return []string{"__init__.js  file:///scripts/__init__.js"} }
	m := newREPLModel(fakeEval(nil), docs)
	m.textInput.SetValue(":docs")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)

	if len(rm.history) != 1 || rm.history[0].output != "__init__.js  file:///scripts/__init__.js" {
		t.Fatalf("unexpected history: %#v", rm.history)
	}
}

func TestUpdateEnterEvaluatesAndRecordsHistory(t *testing.T) {
	m := newREPLModel(fakeEval(map[string]string{"1 + 1": "2"}), noDocuments)
	m.textInput.SetValue("1 + 1")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)

	if len(rm.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(rm.history))
	}
	if got := rm.history[0]; got.output != "2" || got.isErr {
		t.Fatalf("unexpected entry: %#v", got)
	}
	if len(rm.cmdHistory) != 1 || rm.cmdHistory[0] != "1 + 1" {
		t.Fatalf("unexpected command history: %v", rm.cmdHistory)
	}

	model, _ = rm.Update(tea.KeyMsg{Type: tea.KeyUp})
	rm = model.(replModel)
	if rm.textInput.Value() != "1 + 1" {
		t.Fatalf("up should recall previous command, got %q", rm.textInput.Value())
	}
}

func TestEvaluateReportsErrors(t *testing.T) {
	m := newREPLModel(fakeEval(nil), noDocuments)

	output, isErr := m.evaluate("missing")
	if !isErr {
		t.Fatalf("expected error for %q", "missing")
	}
	if !strings.Contains(output, "not defined") {
		t.Fatalf("unexpected error output: %s", output)
	}
}

func TestEvaluateEmptyResultIsUndefined(t *testing.T) {
	m := newREPLModel(fakeEval(map[string]string{"void 0": ""}), noDocuments)

	output, isErr := m.evaluate("void 0")
	if isErr || output != "undefined" {
		t.Fatalf("got %q (err=%v), want undefined", output, isErr)
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := newREPLModel(fakeEval(nil), noDocuments)
	if got := m.View(); got != "Loading..." {
		t.Fatalf("unexpected view: %q", got)
	}

	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if got := model.(replModel).View(); !strings.Contains(got, "scripthost REPL") {
		t.Fatalf("view missing header: %q", got)
	}
}
