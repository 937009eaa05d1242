package hierarchy

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/dominikbraun/graph"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/modules"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Locator finds the definition of a design unit by name.
type Locator interface {
	Lookup(ctx context.Context, name string) (modules.Definition, bool)
}

// SymbolSource returns the indexed symbols of a document.
type SymbolSource interface {
	Query(ctx context.Context, u uri.URI, f symbol.Filter) ([]symbol.Symbol, error)
}

// Builder walks instantiations outward from a root unit.
type Builder struct {
	locator Locator
	symbols SymbolSource
}

// NewBuilder creates a hierarchy builder.
func NewBuilder(locator Locator, symbols SymbolSource) *Builder {
	return &Builder{locator: locator, symbols: symbols}
}

type edgeKey struct {
	parent, child string
}

// Build returns the instantiation graph reachable from root. Units are
// expanded breadth-first up to maxDepth levels below the root; maxDepth <= 0
// means DefaultMaxDepth. Each unit is expanded once, so recursive
// instantiation terminates. Only cancellation is an error: units whose
// symbols cannot be extracted become leaves.
func (b *Builder) Build(ctx context.Context, root string, maxDepth int) (*Graph, error) {
	if root == "" {
		return nil, fmt.Errorf("root module is required")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}

	type item struct {
		name  string
		depth int
	}

	var (
		nodes     []Node
		edgeOrder []edgeKey
		edges     = make(map[edgeKey][]Instance)
		seen      = map[string]bool{root: true}
		queue     = []item{{name: root}}
	)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it := queue[0]
		queue = queue[1:]

		node, def, ok := b.lookup(ctx, it.name)
		if !ok || it.depth >= maxDepth {
			node.Truncated = ok
			nodes = append(nodes, node)
			continue
		}
		nodes = append(nodes, node)

		instances, err := b.instances(ctx, def)
		if err != nil {
			return nil, err
		}
		for _, inst := range instances {
			key := edgeKey{parent: it.name, child: inst.TypeRef}
			if _, exists := edges[key]; !exists {
				edgeOrder = append(edgeOrder, key)
			}
			edges[key] = append(edges[key], Instance{Name: inst.Name, Line: inst.DeclRange.Start.Line})

			if !seen[inst.TypeRef] {
				seen[inst.TypeRef] = true
				queue = append(queue, item{name: inst.TypeRef, depth: it.depth + 1})
			}
		}
	}

	// Vertices first, then edges, so every edge endpoint exists.
	g := graph.New(func(n Node) string { return n.Name }, graph.Directed())
	for _, n := range nodes {
		if err := g.AddVertex(n); err != nil {
			return nil, fmt.Errorf("failed to add unit %s: %w", n.Name, err)
		}
	}
	for _, key := range edgeOrder {
		instances := edges[key]
		sort.SliceStable(instances, func(i, j int) bool { return instances[i].Line < instances[j].Line })
		if err := g.AddEdge(key.parent, key.child, graph.EdgeData(instances)); err != nil {
			return nil, fmt.Errorf("failed to add instantiation %s -> %s: %w", key.parent, key.child, err)
		}
	}

	return &Graph{root: root, g: g}, nil
}

// lookup resolves a unit name to its graph node.
func (b *Builder) lookup(ctx context.Context, name string) (Node, modules.Definition, bool) {
	def, ok := b.locator.Lookup(ctx, name)
	if !ok {
		return Node{Name: name}, modules.Definition{}, false
	}
	return Node{
		Name:     name,
		Kind:     def.Kind,
		URI:      def.URI,
		Line:     def.Line,
		Resolved: true,
	}, def, true
}

// instances returns the typed instances declared directly inside def.
func (b *Builder) instances(ctx context.Context, def modules.Definition) ([]symbol.Symbol, error) {
	syms, err := b.symbols.Query(ctx, def.URI, symbol.Filter{Kind: symbol.KindInstance})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Warning: cannot read instances of %s from %s: %v", def.Name, def.URI.Filename(), err)
		return nil, nil
	}

	var out []symbol.Symbol
	for _, s := range syms {
		if !s.HasTypeRef() {
			continue
		}
		// A file may hold several units; keep only this one's instances.
		if s.Scope != "" && s.Scope != def.Name {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
