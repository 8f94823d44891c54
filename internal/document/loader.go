// Package document locates script documents on a search path and prepares
// them for execution.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/weburl"
)

var (
	// ErrNotFound is returned when no search path entry holds the document.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for absolute names or names leaving the
	// search path.
	ErrInvalidName = errors.New("invalid document name")
	// ErrFileLoadingDisabled is returned by Load when the loader may not
	// read from disk.
	ErrFileLoadingDisabled = errors.New("file loading is disabled")
	// ErrBundle is returned when a module document cannot be bundled.
	ErrBundle = errors.New("bundling document")
)

// MetadataFunc returns the metadata attached to the document at uri.
type MetadataFunc func(uri string) map[string]string

// URLMetadata tags every document with its own URI.
func URLMetadata(uri string) map[string]string {
	return map[string]string{"url": uri}
}

// Options configures a Loader.
type Options struct {
	SearchPath        []string
	EnableFileLoading bool
	Metadata          MetadataFunc // nil means URLMetadata
}

// Document is a loaded document ready to run.
type Document struct {
	Info    core.DocumentInfo
	Path    string
	Source  string
	Bundled bool // Source is an esbuild bundle of a module document
}

// Loader resolves document names against an ordered search path.
type Loader struct {
	searchPath []string
	enabled    bool
	metadata   MetadataFunc
}

// NewLoader returns a loader for opts. Search path entries are made absolute.
func NewLoader(opts Options) (*Loader, error) {
	l := &Loader{enabled: opts.EnableFileLoading, metadata: opts.Metadata}
	if l.metadata == nil {
		l.metadata = URLMetadata
	}
	for _, dir := range opts.SearchPath {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving search path %q: %w", dir, err)
		}
		l.searchPath = append(l.searchPath, abs)
	}
	return l, nil
}

// SearchPath returns the absolute search path.
func (l *Loader) SearchPath() []string {
	return append([]string(nil), l.searchPath...)
}

// Find returns the absolute path of the first search path entry holding name.
func (l *Loader) Find(name string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, dir := range l.searchPath {
		p := filepath.Join(dir, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s (search path: %s)", ErrNotFound, name,
		strings.Join(l.searchPath, string(os.PathListSeparator)))
}

// Load reads the named document. Documents using module syntax are bundled
// with their imports into one script; plain scripts are returned as written
// so their top-level declarations become globals.
func (l *Loader) Load(name string) (*Document, error) {
	if !l.enabled {
		return nil, fmt.Errorf("loading %s: %w", name, ErrFileLoadingDisabled)
	}
	path, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	uri, err := FileURI(path)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Info: core.DocumentInfo{
			Name: name,
			URI:  uri,
			Meta: l.metadata(uri),
		},
		Path:   path,
		Source: string(source),
	}
	if needsBundling(doc.Source) {
		bundled, err := l.bundle(path, uri)
		if err != nil {
			return nil, err
		}
		doc.Source = bundled
		doc.Bundled = true
	}
	return doc, nil
}

func (l *Loader) bundle(path, uri string) (string, error) {
	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{path},
		AbsWorkingDir: filepath.Dir(path),
		Bundle:        true,
		Format:        esbuild.FormatIIFE,
		Write:         false,
		Platform:      esbuild.PlatformBrowser,
		Target:        esbuild.ES2020,
		NodePaths:     l.searchPath,
		Define:        map[string]string{"import.meta.url": strconv.Quote(uri)},
		LogLevel:      esbuild.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("%w %s: %s", ErrBundle, filepath.Base(path), strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("%w %s: no output", ErrBundle, filepath.Base(path))
	}
	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling reports whether source uses module syntax.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "import.meta") ||
		strings.Contains(source, "export ") ||
		strings.Contains(source, "export{")
}

// FileURI returns the file:// URI of an absolute path.
func FileURI(path string) (string, error) {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u, err := weburl.Parse("file://" + p)
	if err != nil {
		return "", fmt.Errorf("building URI for %s: %w", path, err)
	}
	return u.Href(), nil
}
