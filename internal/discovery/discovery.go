// Package discovery finds HDL source and include files in a workspace.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns are skipped unless the caller supplies its own list.
var DefaultIgnorePatterns = []string{".git/**", "node_modules/**", "build/**"}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Finder walks a workspace directory applying ignore globs.
type Finder struct {
	rootDir        string
	ignorePatterns []compiledPattern
}

// New creates a Finder rooted at rootDir. A nil ignore list selects
// DefaultIgnorePatterns.
func New(rootDir string, ignorePatterns []string) (*Finder, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if ignorePatterns == nil {
		ignorePatterns = DefaultIgnorePatterns
	}

	f := &Finder{rootDir: abs}
	f.ignorePatterns, err = compileAll(ignorePatterns)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Root returns the absolute workspace root.
func (f *Finder) Root() string {
	return f.rootDir
}

// FindFiles returns the absolute paths of files ending in one of extensions.
// With no roots the whole workspace is searched. Otherwise a file is
// returned when its directory matches one of the root globs, or, when
// recursive is set, when any ancestor directory does. Results are sorted.
func (f *Finder) FindFiles(extensions []string, roots []string, recursive bool) ([]string, error) {
	rootPatterns, err := f.compileRoots(roots)
	if err != nil {
		return nil, err
	}

	files := []string{}
	err = filepath.WalkDir(f.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && f.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if f.shouldIgnore(relPath) || !hasExtension(relPath, extensions) {
			return nil
		}
		if len(rootPatterns) > 0 && !dirMatches(dirOf(relPath), rootPatterns, recursive) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", f.rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether path lies inside the workspace, is not ignored and
// ends in one of extensions.
func (f *Finder) Matches(path string, extensions []string) bool {
	relPath, err := filepath.Rel(f.rootDir, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	return !f.shouldIgnore(relPath) && hasExtension(relPath, extensions)
}

// Ignored reports whether path is excluded by the ignore patterns. Paths
// outside the workspace are always ignored; the root itself never is.
func (f *Finder) Ignored(path string) bool {
	relPath, err := filepath.Rel(f.rootDir, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return true
	}
	relPath = filepath.ToSlash(relPath)
	return relPath != "." && f.shouldIgnore(relPath)
}

// compileRoots turns include directory globs into workspace-relative patterns.
func (f *Finder) compileRoots(roots []string) ([]compiledPattern, error) {
	patterns := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if filepath.IsAbs(root) {
			if rel, err := filepath.Rel(f.rootDir, root); err == nil {
				root = rel
			}
		}
		root = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(root)), "/")
		patterns = append(patterns, root)
	}
	return compileAll(patterns)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (f *Finder) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, ".hdlnav/") || relPath == ".hdlnav" {
		return true
	}
	if matchesAnyPattern(relPath, f.ignorePatterns) {
		return true
	}

	// A directory such as "build" should match the pattern "build/**".
	return matchesAnyPattern(relPath+"/**", f.ignorePatterns)
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Paths in the root (no slash) also match "**/" patterns with the prefix
	// removed, so "**/*.svh" matches "top.svh".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}

func dirMatches(dir string, patterns []compiledPattern, recursive bool) bool {
	for {
		if matchesAnyPattern(dir, patterns) {
			return true
		}
		if !recursive || dir == "." {
			return false
		}
		dir = dirOf(dir)
	}
}

func dirOf(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return "."
	}
	return relPath[:i]
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}
