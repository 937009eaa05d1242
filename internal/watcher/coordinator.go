// Package watcher keeps the resolution caches in step with the file system
// and the configuration file.
package watcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/index"
)

// WatchCoordinator routes file and configuration changes to the engine and
// the module index.
type WatchCoordinator struct {
	files   FileWatcher
	engine  Engine
	modules ModuleIndex

	mu          sync.Mutex
	ctx         context.Context
	includeOpts index.BuildOptions
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, engine Engine, modules ModuleIndex, includeOpts index.BuildOptions) *WatchCoordinator {
	return &WatchCoordinator{
		files:       files,
		engine:      engine,
		modules:     modules,
		ctx:         context.Background(),
		includeOpts: includeOpts,
	}
}

// Start begins routing file changes. Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	filesErr := make(chan error, 1)
	go func() {
		if err := c.files.Start(ctx, c.handleFileChange); err != nil {
			filesErr <- err
		}
	}()

	select {
	case err := <-filesErr:
		c.cleanup()
		return err
	case <-ctx.Done():
		c.cleanup()
		return ctx.Err()
	}
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// HandleConfigChange applies new include settings. File events are held
// back while the include index is rebuilt.
func (c *WatchCoordinator) HandleConfigChange(opts index.BuildOptions) {
	c.mu.Lock()
	c.includeOpts = opts
	ctx := c.ctx
	c.mu.Unlock()

	c.files.Pause()
	defer c.files.Resume()

	stats, err := c.engine.ConfigChanged(ctx, opts, nil)
	if err != nil {
		log.Printf("Warning: include index rebuild failed: %v", err)
		return
	}
	if stats != nil {
		log.Printf("✓ Include index rebuilt after config change: %d names from %d files", stats.Names, stats.Indexed)
	}
}

// handleFileChange processes file change events from the file watcher.
func (c *WatchCoordinator) handleFileChange(changes []Change) {
	if len(changes) == 0 {
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	opts := c.includeOpts
	c.mu.Unlock()

	log.Printf("Processing %d file change(s)...", len(changes))

	rebuild := false
	for _, ch := range changes {
		u := uri.File(ch.Path)
		switch ch.Op {
		case OpRemoved:
			c.engine.DidClose(u)
			c.modules.Remove(ch.Path)
		default:
			c.engine.DidSave(u)
			if err := c.modules.Update(ch.Path); err != nil {
				log.Printf("Warning: failed to rescan %s: %v", ch.Path, err)
			}
		}
		if isIncludeFile(ch.Path, opts.Extensions) {
			rebuild = true
		}
	}

	if !rebuild {
		return
	}
	if _, err := c.engine.BuildIncludes(ctx, opts, nil); err != nil {
		log.Printf("Warning: include index rebuild failed: %v", err)
	}
}

func isIncludeFile(path string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = index.DefaultIncludeExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}
