package watcher

import (
	"context"

	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/index"
)

// Op is the kind of change observed for a file.
type Op int

const (
	// OpChanged: the file was written or created.
	OpChanged Op = iota
	// OpRemoved: the file was deleted or renamed away.
	OpRemoved
)

func (o Op) String() string {
	if o == OpRemoved {
		return "removed"
	}
	return "changed"
}

// Change is one debounced file change.
type Change struct {
	Path string
	Op   Op
}

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(changes []Change)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Engine receives document lifecycle events and include index rebuilds.
type Engine interface {
	DidSave(u uri.URI)
	DidClose(u uri.URI)
	BuildIncludes(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error)
	ConfigChanged(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error)
}

// ModuleIndex tracks which files define which design units.
type ModuleIndex interface {
	Update(path string) error
	Remove(path string)
}
