// Package ctags extracts declarations from Verilog/SystemVerilog documents
// using the universal-ctags executable.
package ctags

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

const (
	// DefaultPath is the executable looked up on PATH when none is configured.
	DefaultPath = "ctags"

	// ExecutionTimeout bounds a single ctags run.
	ExecutionTimeout = 30 * time.Second
)

// Extractor runs universal-ctags over a document snapshot.
type Extractor struct {
	path    string
	timeout time.Duration
}

// New creates an extractor using the ctags binary at path.
func New(path string) *Extractor {
	if path == "" {
		path = DefaultPath
	}
	return &Extractor{path: path, timeout: ExecutionTimeout}
}

// Path returns the configured executable.
func (e *Extractor) Path() string {
	return e.path
}

// Available reports whether the ctags executable can be found.
func (e *Extractor) Available() error {
	if _, err := exec.LookPath(e.path); err != nil {
		return fmt.Errorf("ctags executable %q not found: %w", e.path, err)
	}
	return nil
}

// Args returns the command line used to tag file.
func Args(file string) []string {
	return []string{
		"-f", "-",
		"--fields=+Ke",
		"--sort=no",
		"--excmd=n",
		"--fields-SystemVerilog=+{parameter}",
		"--language-force=SystemVerilog",
		file,
	}
}

// Extract tags the document content. The snapshot is written to a temporary
// file so that unsaved content is tagged rather than what is on disk.
func (e *Extractor) Extract(ctx context.Context, doc *document.Document) ([]symbol.Symbol, error) {
	tmpDir, err := os.MkdirTemp("", "hdlnav-ctags-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	name := filepath.Base(doc.Path())
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document.sv"
	}
	tmpFile := filepath.Join(tmpDir, name)
	if err := os.WriteFile(tmpFile, []byte(doc.Content), 0600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.path, Args(tmpFile)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ctags timed out on %s", doc.Path())
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("ctags error on %s: %s", doc.Path(), bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, fmt.Errorf("ctags failed on %s: %w", doc.Path(), err)
	}

	return Parse(doc, stdout.Bytes()), nil
}
