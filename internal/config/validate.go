package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyCtagsPath indicates a missing ctags executable
	ErrEmptyCtagsPath = errors.New("empty ctags path")

	// ErrEmptyExtensions indicates an empty extension list
	ErrEmptyExtensions = errors.New("empty extension list")

	// ErrInvalidExtension indicates an extension without a leading dot
	ErrInvalidExtension = errors.New("invalid file extension")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidDebounce indicates a negative debounce interval
	ErrInvalidDebounce = errors.New("invalid debounce interval")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Ctags.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: ctags.path is required", ErrEmptyCtagsPath))
	}

	if err := validateIncludes(&cfg.Includes); err != nil {
		errs = append(errs, err)
	}

	if err := validateSources(&cfg.Sources); err != nil {
		errs = append(errs, err)
	}

	if cfg.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMs))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateIncludes(cfg *IncludesConfig) error {
	var errs []error

	errs = append(errs, validateExtensions("includes.extensions", cfg.Extensions)...)

	// Dirs are only consulted when index_all is off, but a broken glob is
	// reported either way.
	errs = append(errs, validatePatterns("includes.dirs", cfg.Dirs)...)

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSources(cfg *SourcesConfig) error {
	var errs []error

	errs = append(errs, validateExtensions("sources.extensions", cfg.Extensions)...)
	errs = append(errs, validatePatterns("sources.ignore", cfg.Ignore)...)

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtensions(key string, exts []string) []error {
	if len(exts) == 0 {
		return []error{fmt.Errorf("%w: %s needs at least one extension", ErrEmptyExtensions, key)}
	}

	var errs []error
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("%w: %s entry '%s' must start with '.'", ErrInvalidExtension, key, ext))
		}
	}
	return errs
}

func validatePatterns(key string, patterns []string) []error {
	var errs []error
	for _, pattern := range patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s entry '%s': %v", ErrInvalidPattern, key, pattern, err))
		}
	}
	return errs
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
