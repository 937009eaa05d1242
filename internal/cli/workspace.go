package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/hdlnav/internal/config"
	"github.com/mvp-joe/hdlnav/internal/ctags"
	"github.com/mvp-joe/hdlnav/internal/discovery"
	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/hierarchy"
	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/modules"
	"github.com/mvp-joe/hdlnav/internal/resolve"
)

// newExtractor builds the symbol extractor for a configuration.
var newExtractor = func(cfg *config.Config) (index.Extractor, error) {
	ex := ctags.New(cfg.Ctags.Path)
	if err := ex.Available(); err != nil {
		return nil, err
	}
	return ex, nil
}

// workspace is the resolution core for one workspace root.
type workspace struct {
	root     string
	loader   config.Loader
	cfg      *config.Config
	finder   *discovery.Finder
	provider *document.Provider
	units    *modules.Index
	engine   *resolve.Engine
}

// openWorkspace loads configuration for the --root/--config flags and wires
// the engine. The include index is left empty.
func openWorkspace(ctx context.Context) (*workspace, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace root: %w", err)
	}

	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	loader := config.NewLoader(root, opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}

	finder, err := discovery.New(root, cfg.Sources.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore patterns: %w", err)
	}

	provider, err := document.NewProvider(0)
	if err != nil {
		return nil, err
	}

	units := modules.NewIndex(finder, cfg.Sources.Extensions)
	if err := units.Refresh(ctx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to scan design units: %w", err)
	}

	cache := index.NewCache(provider, extractor)
	includes := index.NewIncludeIndex(cache, finder)

	return &workspace{
		root:     root,
		loader:   loader,
		cfg:      cfg,
		finder:   finder,
		provider: provider,
		units:    units,
		engine:   resolve.New(provider, cache, includes, units),
	}, nil
}

// buildIncludes populates the include index using the configured directories.
func (w *workspace) buildIncludes(ctx context.Context, progress index.ProgressReporter) (*index.BuildStats, error) {
	return w.engine.BuildIncludes(ctx, w.cfg.IncludeOptions(), progress)
}

// hierarchyBuilder returns a builder over the workspace indexes.
func (w *workspace) hierarchyBuilder() *hierarchy.Builder {
	return hierarchy.NewBuilder(w.units, w.engine.Cache())
}

// fileArg resolves a command line path; relative paths are taken from the
// workspace root.
func (w *workspace) fileArg(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, path)
}

// display shows path relative to the workspace root when it lies inside it.
func (w *workspace) display(path string) string {
	if rel, err := filepath.Rel(w.root, path); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasParentPrefix(rel) {
		return filepath.ToSlash(rel)
	}
	return path
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

func (w *workspace) Close() {
	w.provider.Close()
}
