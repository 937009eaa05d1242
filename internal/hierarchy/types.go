// Package hierarchy builds the module instantiation graph of a design by
// following instance type references from a root unit.
package hierarchy

import (
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Build defaults and limits
const (
	DefaultMaxDepth = 16
	MaxDepth        = 64
)

// Node is one design unit in the instantiation graph.
type Node struct {
	Name      string      `json:"name"`
	Kind      symbol.Kind `json:"kind,omitempty"`
	URI       uri.URI     `json:"uri,omitempty"`
	Line      uint32      `json:"line"`                // zero-based definition line
	Resolved  bool        `json:"resolved"`            // a definition was found
	Truncated bool        `json:"truncated,omitempty"` // not expanded, depth limit reached
}

// Instance is one instantiation site of a child unit inside its parent.
type Instance struct {
	Name string `json:"name"`
	Line uint32 `json:"line"` // zero-based line in the parent's file
}

// Child is an edge of the graph: every instance of one unit inside a parent.
type Child struct {
	Module    string     `json:"module"`
	Instances []Instance `json:"instances"`
}

// Tree is the instance tree below a unit. The root carries no instance name.
type Tree struct {
	Module       string  `json:"module"`
	Instance     string  `json:"instance,omitempty"`
	InstanceLine uint32  `json:"instance_line,omitempty"` // zero-based line in the parent's file
	URI          uri.URI `json:"uri,omitempty"`
	Line         uint32  `json:"line"` // zero-based definition line
	Unresolved   bool    `json:"unresolved,omitempty"`
	Recursive    bool    `json:"recursive,omitempty"`
	Truncated    bool    `json:"truncated,omitempty"`
	Children     []*Tree `json:"children,omitempty"`
}

// Count returns the number of nodes in the tree, including t.
func (t *Tree) Count() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}
