package index

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// DefaultIncludeExtensions are the file extensions scanned for package members.
var DefaultIncludeExtensions = []string{".svh"}

// FileFinder discovers workspace files.
type FileFinder interface {
	// FindFiles returns files with one of the given extensions. With no
	// roots the whole workspace is searched; otherwise only the directories
	// matching the root globs, descending into subdirectories when
	// recursive is set.
	FindFiles(extensions []string, roots []string, recursive bool) ([]string, error)
}

// BuildOptions selects which include files a build scans.
type BuildOptions struct {
	IndexAll   bool     // scan every include file in the workspace
	Dirs       []string // include directory globs, used when IndexAll is false
	Extensions []string // defaults to DefaultIncludeExtensions
	Workers    int      // concurrent extractions, defaults to GOMAXPROCS
}

// BuildStats describes one include index build.
type BuildStats struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	Indexed   int           `json:"indexed"`
	Failed    int           `json:"failed"`
	Symbols   int           `json:"symbols"`
	Names     int           `json:"names"`
	Duration  time.Duration `json:"duration"`
	Cancelled bool          `json:"cancelled"`
}

// IncludeIndex maps symbol names to every package member declared in the
// scanned include files. Each build replaces the whole map.
type IncludeIndex struct {
	cache  *Cache
	finder FileFinder

	buildMu sync.Mutex // serializes builds

	mu      sync.RWMutex
	symbols map[string][]symbol.Symbol
}

// NewIncludeIndex creates an empty include index reading documents through cache.
func NewIncludeIndex(cache *Cache, finder FileFinder) *IncludeIndex {
	return &IncludeIndex{
		cache:   cache,
		finder:  finder,
		symbols: make(map[string][]symbol.Symbol),
	}
}

// Lookup returns every record declared under name, in scan order.
func (ix *IncludeIndex) Lookup(name string) []symbol.Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	syms := ix.symbols[name]
	if len(syms) == 0 {
		return nil
	}
	out := make([]symbol.Symbol, len(syms))
	copy(out, syms)
	return out
}

// Len returns the number of distinct names.
func (ix *IncludeIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.symbols)
}

// Names returns the indexed names, sorted.
func (ix *IncludeIndex) Names() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	names := make([]string, 0, len(ix.symbols))
	for name := range ix.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build rescans the include files and replaces the index. Per-file failures
// are logged and skipped. With IndexAll off and no Dirs configured no file
// is scanned and the index ends up empty.
//
// A cancelled build does not roll back: the files finished so far are
// merged over the previous index, replacing the earlier entries of those
// files and keeping everything else, and ctx.Err() is returned with the
// partial stats.
func (ix *IncludeIndex) Build(ctx context.Context, opts BuildOptions, progress ProgressReporter) (*BuildStats, error) {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultIncludeExtensions
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	stats := &BuildStats{RunID: uuid.New().String()}
	start := time.Now()

	progress.OnDiscoveryStart()
	var files []string
	var err error
	switch {
	case opts.IndexAll:
		files, err = ix.finder.FindFiles(exts, nil, true)
	case len(opts.Dirs) == 0:
		log.Printf("[%s] no include directories configured, include index left empty", stats.RunID[:8])
	default:
		files, err = ix.finder.FindFiles(exts, opts.Dirs, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to discover include files: %w", err)
	}
	stats.Files = len(files)
	progress.OnDiscoveryComplete(len(files))
	log.Printf("[%s] indexing %d include files", stats.RunID[:8], len(files))

	results := make([][]symbol.Symbol, len(files))
	ok := make([]bool, len(files))
	var progressMu sync.Mutex
	var failed int

	var g errgroup.Group
	g.SetLimit(workers)
	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		i, file := i, file
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			syms, err := ix.cache.Query(ctx, uri.File(file), symbol.Filter{Kind: symbol.KindPackageMember})

			progressMu.Lock()
			defer progressMu.Unlock()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("Warning: failed to index include file %s: %v", file, err)
					failed++
				}
				return nil
			}
			results[i] = syms
			ok[i] = true
			progress.OnFileIndexed(file)
			return nil
		})
	}
	// Every extraction has finished past this point.
	_ = g.Wait()

	merged := make(map[string][]symbol.Symbol)
	scanned := make(map[uri.URI]bool)
	for i, file := range files {
		if !ok[i] {
			continue
		}
		stats.Indexed++
		scanned[uri.File(file)] = true
		for _, sym := range results[i] {
			merged[sym.Name] = append(merged[sym.Name], sym)
			stats.Symbols++
		}
	}

	cancelled := ctx.Err() != nil
	ix.mu.Lock()
	if cancelled {
		merged = overlay(ix.symbols, merged, scanned)
	}
	ix.symbols = merged
	ix.mu.Unlock()

	stats.Failed = failed
	stats.Names = len(merged)
	stats.Duration = time.Since(start)
	stats.Cancelled = cancelled

	progress.OnComplete(stats)
	log.Printf("[%s] indexed %d of %d include files (%d symbols, %d failed)",
		stats.RunID[:8], stats.Indexed, stats.Files, stats.Symbols, stats.Failed)

	if cancelled {
		return stats, ctx.Err()
	}
	return stats, nil
}

// overlay merges the results of a partial build over prev. Entries of the
// scanned files are taken from partial; entries of other files are kept.
func overlay(prev, partial map[string][]symbol.Symbol, scanned map[uri.URI]bool) map[string][]symbol.Symbol {
	out := make(map[string][]symbol.Symbol, len(prev)+len(partial))
	for name, syms := range prev {
		for _, sym := range syms {
			if !scanned[sym.URI] {
				out[name] = append(out[name], sym)
			}
		}
	}
	for name, syms := range partial {
		out[name] = append(out[name], syms...)
	}
	return out
}
