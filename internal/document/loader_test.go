package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newLoader(t *testing.T, dirs ...string) *Loader {
	t.Helper()
	l, err := NewLoader(Options{SearchPath: dirs, EnableFileLoading: true})
	require.NoError(t, err)
	return l
}

func TestLoadPlainScript(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "__init__.js", "function command1() { return 1; }\n")

	doc, err := newLoader(t, dir).Load("__init__.js")
	require.NoError(t, err)

	assert.False(t, doc.Bundled)
	assert.Equal(t, "function command1() { return 1; }\n", doc.Source)
	assert.Equal(t, "__init__.js", doc.Info.Name)
	assert.True(t, strings.HasPrefix(doc.Info.URI, "file:///"), doc.Info.URI)
	assert.True(t, strings.HasSuffix(doc.Info.URI, "/__init__.js"), doc.Info.URI)
	assert.Equal(t, map[string]string{"url": doc.Info.URI}, doc.Info.Meta)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, doc.Path)
}

func TestLoadSearchPathOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, second, "a.js", "var from = 'second';")
	writeFile(t, second, "b.js", "var from = 'second';")
	writeFile(t, first, "a.js", "var from = 'first';")

	l := newLoader(t, first, second)

	doc, err := l.Load("a.js")
	require.NoError(t, err)
	assert.Contains(t, doc.Source, "first")

	doc, err = l.Load("b.js")
	require.NoError(t, err)
	assert.Contains(t, doc.Source, "second")
}

func TestLoadMissingDocument(t *testing.T) {
	_, err := newLoader(t, t.TempDir()).Load("__init__.js")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "__init__.js")
}

func TestLoadDirectoryIsNotADocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.js"), 0o755))

	_, err := newLoader(t, dir).Load("sub.js")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadRejectsEscapingNames(t *testing.T) {
	l := newLoader(t, t.TempDir())
	for _, name := range []string{"../outside.js", "/etc/passwd", ""} {
		_, err := l.Load(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLoadFileLoadingDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "1")

	l, err := NewLoader(Options{SearchPath: []string{dir}})
	require.NoError(t, err)
	_, err = l.Load("a.js")
	assert.ErrorIs(t, err, ErrFileLoadingDisabled)
}

func TestLoadCustomMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "1")

	l, err := NewLoader(Options{
		SearchPath:        []string{dir},
		EnableFileLoading: true,
		Metadata: func(uri string) map[string]string {
			return map[string]string{"url": uri, "kind": "test"}
		},
	})
	require.NoError(t, err)

	doc, err := l.Load("a.js")
	require.NoError(t, err)
	assert.Equal(t, "test", doc.Info.Meta["kind"])
	assert.Equal(t, doc.Info.URI, doc.Info.Meta["url"])
}

func TestLoadBundlesModuleDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib/greet.js", "export function greet(n) { return 'hello ' + n; }\n")
	writeFile(t, dir, "main.js", `import { greet } from './lib/greet.js';
globalThis.greeting = greet('world');
globalThis.where = import.meta.url;
`)

	doc, err := newLoader(t, dir).Load("main.js")
	require.NoError(t, err)

	assert.True(t, doc.Bundled)
	assert.Contains(t, doc.Source, "hello ")
	assert.Contains(t, doc.Source, doc.Info.URI)
	assert.NotContains(t, doc.Source, "import ")
}

func TestLoadBundleFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.js", "import { missing } from './nowhere.js';\nmissing();\n")

	_, err := newLoader(t, dir).Load("main.js")
	assert.ErrorIs(t, err, ErrBundle)
	assert.Contains(t, err.Error(), "nowhere.js")
}

func TestFileURI(t *testing.T) {
	uri, err := FileURI("/opt/my app/scripts/__init__.js")
	require.NoError(t, err)
	assert.Equal(t, "file:///opt/my%20app/scripts/__init__.js", uri)
}

func TestNeedsBundling(t *testing.T) {
	assert.True(t, needsBundling("import x from './x.js'"))
	assert.True(t, needsBundling("export const a = 1"))
	assert.True(t, needsBundling("console.log(import.meta.url)"))
	assert.False(t, needsBundling("function command1() {}"))
}
