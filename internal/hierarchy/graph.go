package hierarchy

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// ErrCyclic is returned by Order when units instantiate each other.
var ErrCyclic = errors.New("instantiation graph has cycles")

// Graph is a built instantiation graph. It is read-only.
type Graph struct {
	root string
	g    graph.Graph[string, Node]
}

// Root returns the name the graph was built from.
func (h *Graph) Root() string {
	return h.root
}

// Node returns the unit with the given name.
func (h *Graph) Node(name string) (Node, bool) {
	n, err := h.g.Vertex(name)
	if err != nil {
		return Node{}, false
	}
	return n, true
}

// Nodes returns every unit, sorted by name.
func (h *Graph) Nodes() []Node {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	nodes := make([]Node, 0, len(adj))
	for name := range adj {
		if n, ok := h.Node(name); ok {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// Children returns the units instantiated by name, ordered by their first
// instantiation line.
func (h *Graph) Children(name string) []Child {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	var children []Child
	for child, edge := range adj[name] {
		instances, _ := edge.Properties.Data.([]Instance)
		children = append(children, Child{Module: child, Instances: instances})
	}
	sort.Slice(children, func(i, j int) bool {
		li, lj := firstLine(children[i]), firstLine(children[j])
		if li != lj {
			return li < lj
		}
		return children[i].Module < children[j].Module
	})
	return children
}

// Parents returns the units that instantiate name, sorted.
func (h *Graph) Parents(name string) []string {
	pred, err := h.g.PredecessorMap()
	if err != nil {
		return nil
	}
	parents := make([]string, 0, len(pred[name]))
	for p := range pred[name] {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	return parents
}

// Unresolved returns instantiated names with no known definition, sorted.
func (h *Graph) Unresolved() []string {
	var names []string
	for _, n := range h.Nodes() {
		if !n.Resolved {
			names = append(names, n.Name)
		}
	}
	return names
}

// Cycles returns each group of mutually instantiating units, including
// units that instantiate themselves.
func (h *Graph) Cycles() [][]string {
	sccs, err := graph.StronglyConnectedComponents(h.g)
	if err != nil {
		return nil
	}
	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) == 1 {
			if _, err := h.g.Edge(scc[0], scc[0]); err != nil {
				continue
			}
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Order returns the units with every parent before its children, ties broken
// by name. Reverse it for elaboration order.
func (h *Graph) Order() ([]string, error) {
	if len(h.Cycles()) > 0 {
		return nil, ErrCyclic
	}
	order, err := graph.StableTopologicalSort(h.g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclic, err)
	}
	return order, nil
}

// Tree expands the graph into an instance tree rooted at the build root.
// A unit already on the current path is emitted once more, marked
// Recursive, and not expanded.
func (h *Graph) Tree() *Tree {
	onPath := make(map[string]bool)

	var expand func(module, instance string, line uint32) *Tree
	expand = func(module, instance string, line uint32) *Tree {
		t := &Tree{Module: module, Instance: instance, InstanceLine: line}
		n, ok := h.Node(module)
		if !ok || !n.Resolved {
			t.Unresolved = true
			return t
		}
		t.URI = n.URI
		t.Line = n.Line
		if onPath[module] {
			t.Recursive = true
			return t
		}
		t.Truncated = n.Truncated

		onPath[module] = true
		for _, child := range h.Children(module) {
			for _, inst := range child.Instances {
				t.Children = append(t.Children, expand(child.Module, inst.Name, inst.Line))
			}
		}
		delete(onPath, module)
		return t
	}

	return expand(h.root, "", 0)
}

// Render writes t as an indented outline, one instance per line.
func Render(w io.Writer, t *Tree) error {
	var render func(t *Tree, depth int) error
	render = func(t *Tree, depth int) error {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", depth))
		if t.Instance != "" {
			fmt.Fprintf(&b, "%s (%s)", t.Instance, t.Module)
		} else {
			b.WriteString(t.Module)
		}
		switch {
		case t.Unresolved:
			b.WriteString(" [unresolved]")
		case t.Recursive:
			b.WriteString(" [recursive]")
		case t.Truncated:
			b.WriteString(" [...]")
		}
		if t.URI != "" {
			fmt.Fprintf(&b, "  %s:%d", t.URI.Filename(), t.Line+1)
		}
		b.WriteString("\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		for _, c := range t.Children {
			if err := render(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return render(t, 0)
}

func firstLine(c Child) uint32 {
	if len(c.Instances) == 0 {
		return 0
	}
	return c.Instances[0].Line
}
