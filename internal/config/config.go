package config

import (
	"time"

	"github.com/mvp-joe/hdlnav/internal/discovery"
	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/modules"
)

// Config represents the complete hdlnav configuration.
// It can be loaded from .hdlnav/config.yml with environment variable overrides.
type Config struct {
	Ctags    CtagsConfig    `yaml:"ctags" mapstructure:"ctags"`
	Includes IncludesConfig `yaml:"includes" mapstructure:"includes"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
}

// CtagsConfig locates the universal-ctags executable.
type CtagsConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // executable name or path
}

// IncludesConfig selects the files scanned into the global include index.
type IncludesConfig struct {
	IndexAll   bool     `yaml:"index_all" mapstructure:"index_all"`   // scan every include file in the workspace
	Dirs       []string `yaml:"dirs" mapstructure:"dirs"`             // include directory globs when index_all is off
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // e.g. [".svh"]
}

// SourcesConfig defines which files hold design units and which to ignore.
type SourcesConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Ctags: CtagsConfig{
			Path: "ctags",
		},
		Includes: IncludesConfig{
			IndexAll:   false,
			Dirs:       []string{},
			Extensions: append([]string(nil), index.DefaultIncludeExtensions...),
		},
		Sources: SourcesConfig{
			Extensions: append([]string(nil), modules.DefaultExtensions...),
			Ignore:     append([]string(nil), discovery.DefaultIgnorePatterns...),
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
	}
}

// IncludeOptions returns the include index build options.
func (c *Config) IncludeOptions() index.BuildOptions {
	return index.BuildOptions{
		IndexAll:   c.Includes.IndexAll,
		Dirs:       c.Includes.Dirs,
		Extensions: c.Includes.Extensions,
	}
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
