package hierarchy

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/modules"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Test Plan for the instantiation hierarchy:
// - Build follows instance type references breadth-first from the root
// - Repeated instances of a unit share one edge, ordered by line
// - Instances of other units in the same file are ignored
// - Unknown units become unresolved leaves
// - Mutual and self instantiation terminate and are reported as cycles
// - Depth limit marks unexpanded units as truncated
// - Extraction failures become leaves; cancellation is returned
// - Order places parents first and fails on cycles
// - Tree and Render expand one line per instance

type fakeLocator map[string]modules.Definition

func (f fakeLocator) Lookup(ctx context.Context, name string) (modules.Definition, bool) {
	d, ok := f[name]
	return d, ok
}

type fakeSymbols struct {
	syms  map[uri.URI][]symbol.Symbol
	fail  map[uri.URI]bool
	calls int
}

func (f *fakeSymbols) Query(ctx context.Context, u uri.URI, flt symbol.Filter) ([]symbol.Symbol, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fail[u] {
		return nil, errors.New("ctags failed")
	}
	return symbol.Select(f.syms[u], flt), nil
}

// design describes units as name -> instances ("inst:type").
type design struct {
	locator fakeLocator
	symbols *fakeSymbols
}

func newDesign() *design {
	return &design{
		locator: fakeLocator{},
		symbols: &fakeSymbols{syms: map[uri.URI][]symbol.Symbol{}, fail: map[uri.URI]bool{}},
	}
}

func (d *design) unit(file, name string, line uint32, instances ...[2]string) {
	u := uri.File("/work/" + file)
	d.locator[name] = modules.Definition{Name: name, Kind: symbol.KindModule, URI: u, Line: line}
	d.symbols.syms[u] = append(d.symbols.syms[u], symbol.Symbol{Name: name, Kind: symbol.KindModule, URI: u})
	for i, inst := range instances {
		d.symbols.syms[u] = append(d.symbols.syms[u], symbol.Symbol{
			Name:      inst[0],
			Kind:      symbol.KindInstance,
			TypeRef:   inst[1],
			Scope:     name,
			ScopeKind: symbol.KindModule,
			DeclRange: symbol.NewRange(line+uint32(i)+1, 2, line+uint32(i)+1, 2+uint32(len(inst[0]))),
			URI:       u,
		})
	}
}

func (d *design) builder() *Builder {
	return NewBuilder(d.locator, d.symbols)
}

func soc() *design {
	d := newDesign()
	d.unit("top.sv", "top", 0,
		[2]string{"u_fifo_a", "fifo"},
		[2]string{"u_bus", "bus_if"},
		[2]string{"u_fifo_b", "fifo"},
	)
	d.unit("fifo.sv", "fifo", 0, [2]string{"u_mem", "ram"})
	// Second unit in the same file; its instances belong to helper only.
	d.unit("fifo.sv", "helper", 20, [2]string{"u_dbg", "debug"})
	d.unit("bus_if.sv", "bus_if", 0)
	return d
}

func TestBuild_FollowsInstances(t *testing.T) {
	t.Parallel()

	g, err := soc().builder().Build(context.Background(), "top", 0)
	require.NoError(t, err)

	assert.Equal(t, "top", g.Root())

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"bus_if", "fifo", "ram", "top"}, names, "helper is never instantiated")

	children := g.Children("top")
	require.Len(t, children, 2)
	assert.Equal(t, "fifo", children[0].Module)
	assert.Equal(t, []Instance{{Name: "u_fifo_a", Line: 1}, {Name: "u_fifo_b", Line: 3}}, children[0].Instances)
	assert.Equal(t, "bus_if", children[1].Module)

	assert.Equal(t, []string{"top"}, g.Parents("fifo"))
	assert.Equal(t, []string{"ram"}, g.Unresolved())

	fifo, ok := g.Node("fifo")
	require.True(t, ok)
	assert.True(t, fifo.Resolved)
	assert.Equal(t, uri.File("/work/fifo.sv"), fifo.URI)

	ram, ok := g.Node("ram")
	require.True(t, ok)
	assert.False(t, ram.Resolved)

	assert.Empty(t, g.Cycles())
}

func TestBuild_UnknownRoot(t *testing.T) {
	t.Parallel()

	g, err := soc().builder().Build(context.Background(), "nowhere", 0)
	require.NoError(t, err)

	tree := g.Tree()
	assert.True(t, tree.Unresolved)
	assert.Equal(t, 1, tree.Count())

	_, err = soc().builder().Build(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestBuild_Cycles(t *testing.T) {
	t.Parallel()

	d := newDesign()
	d.unit("a.sv", "a", 0, [2]string{"u_b", "b"})
	d.unit("b.sv", "b", 0, [2]string{"u_a", "a"})
	d.unit("r.sv", "r", 0, [2]string{"u_self", "r"}, [2]string{"u_a", "a"})

	g, err := d.builder().Build(context.Background(), "r", 0)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"r"}}, g.Cycles())

	_, err = g.Order()
	assert.ErrorIs(t, err, ErrCyclic)

	tree := g.Tree()
	require.Len(t, tree.Children, 2)
	assert.True(t, tree.Children[0].Recursive, "r inside r")
	a := tree.Children[1]
	require.Len(t, a.Children, 1)
	b := a.Children[0]
	require.Len(t, b.Children, 1)
	assert.True(t, b.Children[0].Recursive, "a inside b inside a")
	assert.Empty(t, b.Children[0].Children)
}

func TestBuild_DepthLimit(t *testing.T) {
	t.Parallel()

	d := newDesign()
	d.unit("l0.sv", "l0", 0, [2]string{"u1", "l1"})
	d.unit("l1.sv", "l1", 0, [2]string{"u2", "l2"})
	d.unit("l2.sv", "l2", 0, [2]string{"u3", "l3"})
	d.unit("l3.sv", "l3", 0)

	g, err := d.builder().Build(context.Background(), "l0", 1)
	require.NoError(t, err)

	assert.Len(t, g.Nodes(), 2)
	l1, ok := g.Node("l1")
	require.True(t, ok)
	assert.True(t, l1.Truncated)
	assert.Empty(t, g.Children("l1"))

	tree := g.Tree()
	assert.Equal(t, 2, tree.Count())
	assert.True(t, tree.Children[0].Truncated)
}

func TestBuild_ExtractionFailure(t *testing.T) {
	t.Parallel()

	d := soc()
	d.symbols.fail[uri.File("/work/fifo.sv")] = true

	g, err := d.builder().Build(context.Background(), "top", 0)
	require.NoError(t, err)

	fifo, ok := g.Node("fifo")
	require.True(t, ok)
	assert.True(t, fifo.Resolved)
	assert.Empty(t, g.Children("fifo"), "failed units become leaves")
	assert.Empty(t, g.Unresolved())
}

func TestBuild_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := soc().builder().Build(ctx, "top", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, g)
}

func TestGraph_Order(t *testing.T) {
	t.Parallel()

	g, err := soc().builder().Build(context.Background(), "top", 0)
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 4)
	assert.Equal(t, "top", order[0])

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["fifo"], pos["ram"])
	assert.Less(t, pos["top"], pos["bus_if"])
}

func TestGraph_TreeAndRender(t *testing.T) {
	t.Parallel()

	g, err := soc().builder().Build(context.Background(), "top", 0)
	require.NoError(t, err)

	tree := g.Tree()
	assert.Equal(t, 6, tree.Count())
	require.Len(t, tree.Children, 3)
	assert.Equal(t, "u_fifo_a", tree.Children[0].Instance)
	assert.Equal(t, uint32(1), tree.Children[0].InstanceLine)
	assert.Equal(t, "u_fifo_b", tree.Children[1].Instance)
	assert.Equal(t, "u_bus", tree.Children[2].Instance)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tree))
	assert.Equal(t, "top  /work/top.sv:1\n"+
		"  u_fifo_a (fifo)  /work/fifo.sv:1\n"+
		"    u_mem (ram) [unresolved]\n"+
		"  u_fifo_b (fifo)  /work/fifo.sv:1\n"+
		"    u_mem (ram) [unresolved]\n"+
		"  u_bus (bus_if)  /work/bus_if.sv:1\n", buf.String())
}
