package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// memOpener serves documents from memory.
type memOpener struct {
	mu    sync.Mutex
	files map[uri.URI]string
}

func newMemOpener() *memOpener {
	return &memOpener{files: make(map[uri.URI]string)}
}

func (m *memOpener) set(path, content string) uri.URI {
	u := uri.File(path)
	m.mu.Lock()
	m.files[u] = content
	m.mu.Unlock()
	return u
}

func (m *memOpener) Open(ctx context.Context, u uri.URI) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[u]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", u)
	}
	return document.New(u, content), nil
}

// lineExtractor turns each non-empty line "name kind [scopeKind]" into a
// symbol declared on that line. A line "!fail" makes extraction fail.
type lineExtractor struct {
	calls   atomic.Int64
	started chan struct{} // receives once per extraction when set
	release chan struct{} // extraction waits on it when set
}

func (e *lineExtractor) Extract(ctx context.Context, doc *document.Document) ([]symbol.Symbol, error) {
	e.calls.Add(1)
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		<-e.release
	}

	var syms []symbol.Symbol
	for i := 0; i < doc.LineCount(); i++ {
		fields := strings.Fields(doc.Line(i))
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "!fail" {
			return nil, fmt.Errorf("malformed input")
		}
		sym := symbol.Symbol{
			Name:      fields[0],
			DeclRange: symbol.NewRange(uint32(i), 0, uint32(i), uint32(len(fields[0]))),
			FullRange: symbol.NewRange(uint32(i), 0, uint32(i), uint32(len(doc.Line(i)))),
			URI:       doc.URI,
		}
		if len(fields) > 1 {
			sym.Kind = symbol.Kind(fields[1])
		}
		if len(fields) > 2 {
			sym.ScopeKind = symbol.Kind(fields[2])
		}
		syms = append(syms, sym)
	}
	return syms, nil
}

// listFinder returns a fixed file list and records the last request.
type listFinder struct {
	files     []string
	err       error
	roots     []string
	recursive bool
}

func (f *listFinder) FindFiles(extensions []string, roots []string, recursive bool) ([]string, error) {
	f.roots = roots
	f.recursive = recursive
	return f.files, f.err
}

// recordingReporter records progress callbacks.
type recordingReporter struct {
	discovered int
	indexed    []string
	completed  *BuildStats
	onIndexed  func(file string)
}

func (r *recordingReporter) OnDiscoveryStart()             {}
func (r *recordingReporter) OnDiscoveryComplete(files int) { r.discovered = files }
func (r *recordingReporter) OnFileIndexed(file string) {
	r.indexed = append(r.indexed, file)
	if r.onIndexed != nil {
		r.onIndexed(file)
	}
}
func (r *recordingReporter) OnComplete(stats *BuildStats) { r.completed = stats }
