package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is negative.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a file watcher.
type Options struct {
	Debounce time.Duration          // quiet period before firing the callback
	Match    func(path string) bool // files to report; nil reports every file
	SkipDir  func(path string) bool // directories not to watch; nil watches all
}

// fileWatcher implements FileWatcher interface.
type fileWatcher struct {
	watcher       *fsnotify.Watcher
	dirs          []string               // Directories to watch
	opts          Options                // Filters and debounce
	callback      func(changes []Change) // Callback to invoke with changed files
	ctx           context.Context        // Context for lifecycle management
	cancel        context.CancelFunc     // Cancel function for internal context
	paused        bool                   // Whether watching is paused
	pausedMu      sync.RWMutex           // Protects paused flag
	accumulated   map[string]Op          // Accumulated file changes, last op wins
	accumulatedMu sync.Mutex             // Protects accumulated map
	debounceTimer *time.Timer            // Current debounce timer
	timerMu       sync.Mutex             // Protects debounce timer
	stopOnce      sync.Once              // Ensures Stop() is idempotent
	doneCh        chan struct{}          // Signals watch goroutine has finished
}

// NewFileWatcher creates a new file watcher for the given directories,
// which are watched recursively.
func NewFileWatcher(dirs []string, opts Options) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce < 0 {
		opts.Debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		watcher:     watcher,
		dirs:        dirs,
		opts:        opts,
		accumulated: make(map[string]Op),
		doneCh:      make(chan struct{}),
	}

	for _, dir := range dirs {
		if err := fw.addDirectoriesRecursively(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(changes []Change)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			// Never started, close doneCh manually
			close(fw.doneCh)
		}

		err = fw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flush()
	}
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	flushCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Handle new directories - add them to watcher
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			op, ok := fw.classify(event)
			if !ok {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = op
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(flushCh)

		case <-flushCh:
			fw.pausedMu.RLock()
			paused := fw.paused
			fw.pausedMu.RUnlock()

			// Paused - keep accumulating, don't fire callback
			if !paused {
				fw.flush()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// flush fires the callback with the accumulated changes, sorted by path.
func (fw *fileWatcher) flush() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}

	changes := make([]Change, 0, len(fw.accumulated))
	for path, op := range fw.accumulated {
		changes = append(changes, Change{Path: path, Op: op})
	}
	fw.accumulated = make(map[string]Op)
	fw.accumulatedMu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	if fw.callback != nil {
		fw.callback(changes)
	}
}

// resetDebounceTimer resets the debounce timer, properly stopping the old one.
func (fw *fileWatcher) resetDebounceTimer(flushCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.opts.Debounce, func() {
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// classify maps an fsnotify event to a change, filtering unwanted files.
func (fw *fileWatcher) classify(event fsnotify.Event) (Op, bool) {
	var op Op
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpRemoved
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		op = OpChanged
	default:
		return 0, false
	}

	if fw.opts.Match != nil && !fw.opts.Match(event.Name) {
		return 0, false
	}
	return op, true
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// If it's the root path, fail immediately
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if path != rootPath && fw.opts.SkipDir != nil && fw.opts.SkipDir(path) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
			return nil // Continue anyway
		}

		return nil
	})
}
