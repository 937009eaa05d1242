// Package modules locates the files that define HDL design units
// (modules, interfaces, packages and programs) in a workspace.
package modules

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// DefaultExtensions are the source file extensions scanned for design units.
var DefaultExtensions = []string{".v", ".sv", ".vh", ".svh"}

// Locator resolves a design unit name to the file defining it.
type Locator interface {
	FindDefiningFile(ctx context.Context, name string) (uri.URI, bool)
	IsKnownModule(name string) bool
}

// FileFinder discovers workspace files.
type FileFinder interface {
	FindFiles(extensions []string, roots []string, recursive bool) ([]string, error)
}

// Definition is one design unit declaration.
type Definition struct {
	Name string      `json:"name"`
	Kind symbol.Kind `json:"kind"`
	URI  uri.URI     `json:"uri"`
	Line uint32      `json:"line"`
}

var (
	unitPattern = regexp.MustCompile(`^\s*(?:extern\s+)?(module|macromodule|interface|package|program)\s+(?:(?:automatic|static)\s+)?([A-Za-z_][A-Za-z0-9_$]*)`)
	lineComment = regexp.MustCompile(`//.*$`)
)

// Scan returns the design units declared in content, in source order.
func Scan(u uri.URI, content string) []Definition {
	var defs []Definition
	inBlockComment := false
	for i, line := range strings.Split(content, "\n") {
		line = stripBlockComments(line, &inBlockComment)
		line = lineComment.ReplaceAllString(line, "")

		m := unitPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// "interface class" declares a class, not an interface.
		if m[2] == "class" {
			continue
		}
		kind := symbol.Kind(m[1])
		if m[1] == "macromodule" {
			kind = symbol.KindModule
		}
		defs = append(defs, Definition{Name: m[2], Kind: kind, URI: u, Line: uint32(i)})
	}
	return defs
}

func stripBlockComments(line string, inComment *bool) string {
	var b strings.Builder
	for len(line) > 0 {
		if *inComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				return b.String()
			}
			line = line[end+2:]
			*inComment = false
			continue
		}
		start := strings.Index(line, "/*")
		if start < 0 {
			b.WriteString(line)
			break
		}
		b.WriteString(line[:start])
		line = line[start+2:]
		*inComment = true
	}
	return b.String()
}

// Index is an in-memory Locator built by scanning workspace sources. When a
// name is declared in several files the first file in path order wins.
type Index struct {
	finder     FileFinder
	extensions []string

	mu     sync.RWMutex
	loaded bool
	byName map[string][]Definition
	byFile map[uri.URI][]Definition
}

// NewIndex creates an empty index. It is populated by Refresh, or lazily on
// the first lookup.
func NewIndex(finder FileFinder, extensions []string) *Index {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Index{
		finder:     finder,
		extensions: extensions,
		byName:     make(map[string][]Definition),
		byFile:     make(map[uri.URI][]Definition),
	}
}

// Refresh rescans every source file in the workspace.
func (ix *Index) Refresh(ctx context.Context) error {
	files, err := ix.finder.FindFiles(ix.extensions, nil, true)
	if err != nil {
		return fmt.Errorf("failed to discover source files: %w", err)
	}

	byFile := make(map[uri.URI][]Definition, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := os.ReadFile(file)
		if err != nil {
			log.Printf("Warning: failed to scan %s: %v", file, err)
			continue
		}
		u := uri.File(file)
		if defs := Scan(u, string(content)); len(defs) > 0 {
			byFile[u] = defs
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byFile = byFile
	ix.byName = make(map[string][]Definition)
	for _, defs := range byFile {
		for _, d := range defs {
			ix.byName[d.Name] = append(ix.byName[d.Name], d)
		}
	}
	for name := range ix.byName {
		ix.sortLocked(name)
	}
	ix.loaded = true
	return nil
}

// Update rescans a single file after it changed on disk.
func (ix *Index) Update(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	u := uri.File(path)
	defs := Scan(u, string(content))

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(u)
	if len(defs) == 0 {
		return nil
	}
	ix.byFile[u] = defs
	for _, d := range defs {
		ix.byName[d.Name] = append(ix.byName[d.Name], d)
		ix.sortLocked(d.Name)
	}
	return nil
}

// Remove forgets the definitions of a deleted file.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(uri.File(path))
}

// FindDefiningFile returns the file declaring name.
func (ix *Index) FindDefiningFile(ctx context.Context, name string) (uri.URI, bool) {
	d, ok := ix.Lookup(ctx, name)
	if !ok {
		return "", false
	}
	return d.URI, true
}

// Lookup returns the winning definition of name.
func (ix *Index) Lookup(ctx context.Context, name string) (Definition, bool) {
	if err := ix.ensureLoaded(ctx); err != nil {
		log.Printf("Warning: module index unavailable: %v", err)
		return Definition{}, false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	defs := ix.byName[name]
	if len(defs) == 0 {
		return Definition{}, false
	}
	return defs[0], true
}

// IsKnownModule reports whether name is a known design unit. Like Lookup it
// scans the workspace on first use.
func (ix *Index) IsKnownModule(name string) bool {
	if name == "" {
		return false
	}
	if err := ix.ensureLoaded(context.Background()); err != nil {
		log.Printf("Warning: module index unavailable: %v", err)
		return false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byName[name]) > 0
}

// Definitions returns the winning definition of every known name, sorted by name.
func (ix *Index) Definitions() []Definition {
	if err := ix.ensureLoaded(context.Background()); err != nil {
		log.Printf("Warning: module index unavailable: %v", err)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]Definition, 0, len(ix.byName))
	for _, defs := range ix.byName {
		out = append(out, defs[0])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (ix *Index) ensureLoaded(ctx context.Context) error {
	ix.mu.RLock()
	loaded := ix.loaded
	ix.mu.RUnlock()
	if loaded {
		return nil
	}
	return ix.Refresh(ctx)
}

func (ix *Index) removeLocked(u uri.URI) {
	for _, d := range ix.byFile[u] {
		kept := ix.byName[d.Name][:0]
		for _, other := range ix.byName[d.Name] {
			if other.URI != u {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(ix.byName, d.Name)
		} else {
			ix.byName[d.Name] = kept
		}
	}
	delete(ix.byFile, u)
}

func (ix *Index) sortLocked(name string) {
	defs := ix.byName[name]
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].URI != defs[j].URI {
			return defs[i].URI < defs[j].URI
		}
		return defs[i].Line < defs[j].Line
	})
	if len(defs) > 1 {
		log.Printf("Warning: %s is declared %d times, using %s", name, len(defs), defs[0].URI.Filename())
	}
}
