package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DirName is the per-workspace configuration directory.
const DirName = ".hdlnav"

// ErrNoConfigFile is returned by Watch when no configuration file was loaded.
var ErrNoConfigFile = errors.New("no config file to watch")

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)

	// Watch calls onChange with the reloaded configuration every time the
	// config file changes. Invalid edits are logged and skipped.
	Watch(onChange func(*Config)) error
}

type loader struct {
	rootDir    string
	configFile string

	mu sync.Mutex
	v  *viper.Viper
}

// LoaderOption customizes a Loader.
type LoaderOption func(*loader)

// WithConfigFile reads the given file instead of searching the workspace
// config directory. A missing file is then an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) {
		l.configFile = path
	}
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{
		rootDir: rootDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (HDLNAV_*)
// 2. Config file (.hdlnav/config.yml or .hdlnav/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	// HDLNAV_INCLUDES_INDEX_ALL overrides includes.index_all
	v.SetEnvPrefix("HDLNAV")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("ctags.path")
	v.BindEnv("includes.index_all")
	v.BindEnv("includes.dirs")
	v.BindEnv("includes.extensions")
	v.BindEnv("sources.extensions")
	v.BindEnv("sources.ignore")
	v.BindEnv("watch.debounce_ms")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.v = v
	l.mu.Unlock()

	return cfg, nil
}

// Watch reloads the config file on change. Load must have found a file.
func (l *loader) Watch(onChange func(*Config)) error {
	l.mu.Lock()
	v := l.v
	l.mu.Unlock()

	if v == nil || v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Printf("Warning: ignoring config change in %s: %v", e.Name, err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("ctags.path", defaults.Ctags.Path)

	v.SetDefault("includes.index_all", defaults.Includes.IndexAll)
	v.SetDefault("includes.dirs", defaults.Includes.Dirs)
	v.SetDefault("includes.extensions", defaults.Includes.Extensions)

	v.SetDefault("sources.extensions", defaults.Sources.Extensions)
	v.SetDefault("sources.ignore", defaults.Sources.Ignore)

	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
