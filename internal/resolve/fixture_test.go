package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/ctags"
	"github.com/mvp-joe/hdlnav/internal/discovery"
	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/modules"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// cannedExtractor feeds recorded ctags output through the real parser,
// keyed by file base name. Files without output fail to extract.
type cannedExtractor struct {
	mu    sync.Mutex
	tags  map[string]string
	calls map[string]int
}

func newCannedExtractor(tags map[string]string) *cannedExtractor {
	return &cannedExtractor{tags: tags, calls: make(map[string]int)}
}

func (c *cannedExtractor) set(name, tags string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[name] = tags
}

func (c *cannedExtractor) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *cannedExtractor) Extract(ctx context.Context, doc *document.Document) ([]symbol.Symbol, error) {
	name := filepath.Base(doc.Path())
	c.mu.Lock()
	c.calls[name]++
	out, ok := c.tags[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ctags failed on %s", name)
	}
	return ctags.Parse(doc, []byte(out)), nil
}

const topSV = `module top;
  logic clk;
  fifo #(.WIDTH(8)) my_fifo (
    .DEPTH(16),
    .clk(clk)
  );
  bus_if my_bus ();
  assign clk = my_bus.valid;
  int r = my_pkg::my_func(1);
  shared_type s;
  assign clk = ghost.clk;
  bare_if bare ();
  assign clk = bare.x;
endmodule
`

const topTags = "top\ttop.sv\t1;\"\tmodule\n" +
	"clk\ttop.sv\t2;\"\tregister\tmodule:top\n" +
	"my_fifo\ttop.sv\t3;\"\tinstance\tmodule:top\ttyperef:module:fifo\n" +
	"my_bus\ttop.sv\t7;\"\tinstance\tmodule:top\ttyperef:module:bus_if\n" +
	"r\ttop.sv\t9;\"\tregister\tmodule:top\n" +
	"s\ttop.sv\t10;\"\tregister\tmodule:top\n" +
	"bare\ttop.sv\t12;\"\tinstance\tmodule:top\n"

const fifoSV = `module fifo #(
  parameter WIDTH = 8,
  parameter DEPTH = 4
) (
  input logic clk
);
endmodule
`

const fifoTags = "fifo\tfifo.sv\t1;\"\tmodule\n" +
	"WIDTH\tfifo.sv\t2;\"\tconstant\tmodule:fifo\tparameter:\n" +
	"DEPTH\tfifo.sv\t3;\"\tconstant\tmodule:fifo\tparameter:\n" +
	"clk\tfifo.sv\t5;\"\tport\tmodule:fifo\n"

const busSV = `interface bus_if;
  logic valid;
  logic ready;
endinterface
`

const busTags = "bus_if\tbus_if.sv\t1;\"\tinterface\n" +
	"valid\tbus_if.sv\t2;\"\tregister\tinterface:bus_if\n" +
	"ready\tbus_if.sv\t3;\"\tregister\tinterface:bus_if\n"

const myPkgSV = `package my_pkg;
  function automatic int my_func(int a);
    return a;
  endfunction
  function automatic int my_func(int a, int b);
    return a + b;
  endfunction
endpackage
`

const myPkgTags = "my_pkg\tmy_pkg.sv\t1;\"\tpackage\n" +
	"my_func\tmy_pkg.sv\t2;\"\tfunction\tpackage:my_pkg\n" +
	"my_func\tmy_pkg.sv\t5;\"\tfunction\tpackage:my_pkg\n"

const stackSV = `module stack;
  logic clk;
  fifo #(
    .DEPTH(32)
  ) u_fifo (
    .clk(clk)
  );
endmodule
`

const stackTags = "stack\tstack.sv\t1;\"\tmodule\n" +
	"clk\tstack.sv\t2;\"\tregister\tmodule:stack\n" +
	"u_fifo\tstack.sv\t5;\"\tinstance\tmodule:stack\ttyperef:module:fifo\n"

const pkgASVH = `package pkg_a;
  typedef logic [7:0] shared_type;
endpackage
`

const pkgATags = "pkg_a\tpkg_a.svh\t1;\"\tpackage\n" +
	"shared_type\tpkg_a.svh\t2;\"\ttypedef\tpackage:pkg_a\n"

const pkgBSVH = `package pkg_b;
  typedef logic [15:0] shared_type;
endpackage
`

const pkgBTags = "pkg_b\tpkg_b.svh\t1;\"\tpackage\n" +
	"shared_type\tpkg_b.svh\t2;\"\ttypedef\tpackage:pkg_b\n"

// workspace is a small design on disk wired to a real engine.
type workspace struct {
	root      string
	provider  *document.Provider
	extractor *cannedExtractor
	locator   *modules.Index
	engine    *Engine
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"top.sv":        topSV,
		"fifo.sv":       fifoSV,
		"bus_if.sv":     busSV,
		"my_pkg.sv":     myPkgSV,
		"stack.sv":      stackSV,
		"inc/pkg_a.svh": pkgASVH,
		"inc/pkg_b.svh": pkgBSVH,
		"broken.sv":     "module broken;\n  logic q;\nendmodule\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	provider, err := document.NewProvider(0)
	require.NoError(t, err)
	t.Cleanup(provider.Close)

	extractor := newCannedExtractor(map[string]string{
		"top.sv":    topTags,
		"fifo.sv":   fifoTags,
		"bus_if.sv": busTags,
		"my_pkg.sv": myPkgTags,
		"stack.sv":  stackTags,
		"pkg_a.svh": pkgATags,
		"pkg_b.svh": pkgBTags,
	})

	finder, err := discovery.New(root, nil)
	require.NoError(t, err)
	locator := modules.NewIndex(finder, nil)
	require.NoError(t, locator.Refresh(context.Background()))

	cache := index.NewCache(provider, extractor)
	includes := index.NewIncludeIndex(cache, finder)
	engine := New(provider, cache, includes, locator)

	_, err = engine.BuildIncludes(context.Background(), index.BuildOptions{Dirs: []string{"inc"}}, nil)
	require.NoError(t, err)

	return &workspace{
		root:      root,
		provider:  provider,
		extractor: extractor,
		locator:   locator,
		engine:    engine,
	}
}

func (w *workspace) uri(name string) uri.URI {
	return uri.File(filepath.Join(w.root, filepath.FromSlash(name)))
}
