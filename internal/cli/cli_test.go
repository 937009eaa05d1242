package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hdlnav/internal/config"
	"github.com/mvp-joe/hdlnav/internal/ctags"
	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/hierarchy"
	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Test Plan for CLI commands:
// - define resolves a port connection through the instance's module
// - define resolves a bare type name through the include index and --explain
//   prints the strategy
// - define rejects non-numeric and zero positions before opening the workspace
// - symbols --kind lists only matching declarations with their type references
// - hierarchy renders each instance once, --order prints leaves first and
//   --depth is range checked
// - index --quiet --list prints the summary and every include name
// - version writes to the command output
// - formatNumber inserts thousands separators, including negatives
// - CLIProgressReporter is silent when quiet and summarizes otherwise
// - watchedExtensions merges source and include extensions without duplicates
//
// Commands share package level flag variables, so these tests do not run in
// parallel.

const topSV = `module top;
  logic clk;
  fifo u_fifo_a (.clk(clk));
  fifo u_fifo_b (.clk(clk));
  word_t data;
endmodule
`

const topTags = "top\ttop.sv\t1;\"\tmodule\n" +
	"clk\ttop.sv\t2;\"\tregister\tmodule:top\n" +
	"u_fifo_a\ttop.sv\t3;\"\tinstance\tmodule:top\ttyperef:module:fifo\n" +
	"u_fifo_b\ttop.sv\t4;\"\tinstance\tmodule:top\ttyperef:module:fifo\n" +
	"data\ttop.sv\t5;\"\tregister\tmodule:top\n"

const fifoSV = `module fifo (
  input logic clk
);
endmodule
`

const fifoTags = "fifo\tfifo.sv\t1;\"\tmodule\n" +
	"clk\tfifo.sv\t2;\"\tport\tmodule:fifo\n"

const typesSVH = `package types_pkg;
  typedef logic [7:0] word_t;
endpackage
`

const typesTags = "types_pkg\ttypes.svh\t1;\"\tpackage\n" +
	"word_t\ttypes.svh\t2;\"\ttypedef\tpackage:types_pkg\n"

const configYML = `includes:
  dirs: ["inc"]
`

// cannedExtractor returns recorded ctags output keyed by file name.
type cannedExtractor map[string]string

func (c cannedExtractor) Extract(ctx context.Context, doc *document.Document) ([]symbol.Symbol, error) {
	out, ok := c[filepath.Base(doc.Path())]
	if !ok {
		return nil, fmt.Errorf("ctags failed on %s", doc.Path())
	}
	return ctags.Parse(doc, []byte(out)), nil
}

// setupDesign writes a small design to a temp dir and points the root flag
// and the extractor at it.
func setupDesign(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"top.sv":             topSV,
		"fifo.sv":            fifoSV,
		"inc/types.svh":      typesSVH,
		".hdlnav/config.yml": configYML,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	prev := newExtractor
	newExtractor = func(*config.Config) (index.Extractor, error) {
		return cannedExtractor{
			"top.sv":    topTags,
			"fifo.sv":   fifoTags,
			"types.svh": typesTags,
		}, nil
	}
	t.Cleanup(func() { newExtractor = prev })

	return root
}

// run executes the root command with args and returns its standard output.
func run(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()

	rootDir, cfgFile, verbose = "", "", false
	jsonFlag, explainFlag, kindFlag = false, false, ""
	depthFlag, orderFlag = hierarchy.DefaultMaxDepth, false
	quietFlag, listFlag = false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--root", root}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestDefine_PortConnection(t *testing.T) {
	root := setupDesign(t)

	// ".clk" in "fifo u_fifo_a (.clk(clk));"
	out, err := run(t, root, "define", "top.sv", "3", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "fifo.sv:2:")
	assert.Contains(t, out, "port\tclk")
}

func TestDefine_IncludeIndexWithExplain(t *testing.T) {
	root := setupDesign(t)

	out, err := run(t, root, "define", "top.sv", "5", "4", "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: include-index")
	assert.Contains(t, out, "inc/types.svh:2:")
	assert.Contains(t, out, "(package types_pkg)")
}

func TestDefine_InvalidPosition(t *testing.T) {
	root := setupDesign(t)

	_, err := run(t, root, "define", "top.sv", "x", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINE must be a positive integer")

	_, err = run(t, root, "define", "top.sv", "1", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COLUMN must be a positive integer")
}

func TestSymbols_KindFilter(t *testing.T) {
	root := setupDesign(t)

	out, err := run(t, root, "symbols", "top.sv", "--kind", "instance")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "u_fifo_a")
	assert.Contains(t, lines[0], "type=fifo")
	assert.Contains(t, lines[1], "u_fifo_b")
}

func TestHierarchy(t *testing.T) {
	root := setupDesign(t)

	out, err := run(t, root, "hierarchy", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "top  ")
	assert.Contains(t, out, "  u_fifo_a (fifo)")
	assert.Contains(t, out, "  u_fifo_b (fifo)")
	assert.NotContains(t, out, "unresolved")

	out, err = run(t, root, "hierarchy", "top", "--order")
	require.NoError(t, err)
	assert.Equal(t, "fifo\ntop\n", out)

	_, err = run(t, root, "hierarchy", "top", "--depth", "0")
	require.Error(t, err)
}

func TestIndex_List(t *testing.T) {
	root := setupDesign(t)

	out, err := run(t, root, "index", "--quiet", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "Include index: 1 names from 1 files")
	assert.Contains(t, out, "word_t\ttypes_pkg\tinc/types.svh:2\n")
	assert.NotContains(t, out, "Design units:")
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hdlnav "+Version)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-9876, "-9,876"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in), "formatNumber(%d)", tt.in)
	}
}

func TestCLIProgressReporter(t *testing.T) {
	t.Parallel()

	stats := &index.BuildStats{Files: 3, Indexed: 2, Failed: 1, Names: 1500, Duration: 1500 * time.Millisecond}

	var quiet bytes.Buffer
	q := NewCLIProgressReporter(&quiet, true)
	q.OnDiscoveryStart()
	q.OnDiscoveryComplete(3)
	q.OnFileIndexed("a.svh")
	q.OnComplete(stats)
	assert.Empty(t, quiet.String())

	var loud bytes.Buffer
	r := NewCLIProgressReporter(&loud, false)
	r.OnDiscoveryComplete(0)
	r.OnComplete(stats)
	assert.Contains(t, loud.String(), "Include index complete: 1,500 names from 2 files")
	assert.Contains(t, loud.String(), "Skipped: 1 files")

	loud.Reset()
	stats.Cancelled = true
	r.OnComplete(stats)
	assert.Contains(t, loud.String(), "Include index cancelled")
}

func TestWatchedExtensions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sources.Extensions = []string{".sv", ".svh"}
	cfg.Includes.Extensions = []string{".svh", ".vh"}
	assert.Equal(t, []string{".sv", ".svh", ".vh"}, watchedExtensions(cfg))

	cfg.Includes.Extensions = nil
	assert.Equal(t, []string{".sv", ".svh"}, watchedExtensions(cfg))
}
