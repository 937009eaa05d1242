// Package symbol defines the declaration records produced by tag extraction
// and consumed by the indexes and the resolver.
package symbol

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Kind is the category of a declaration as reported by the extractor.
// Unknown extractor kinds are carried through verbatim.
type Kind string

const (
	KindModule    Kind = "module"
	KindInterface Kind = "interface"
	KindPackage   Kind = "package"
	KindProgram   Kind = "program"
	KindClass     Kind = "class"
	KindInstance  Kind = "instance"
	KindParameter Kind = "parameter"
	KindPort      Kind = "port"
	KindNet       Kind = "net"
	KindRegister  Kind = "register"
	KindConstant  Kind = "constant"
	KindTypedef   Kind = "typedef"
	KindFunction  Kind = "function"
	KindTask      Kind = "task"
	KindMember    Kind = "member"
	KindModport   Kind = "modport"
	KindBlock     Kind = "block"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindDefine    Kind = "define"

	// KindPackageMember is a pseudo-kind used in filters. It matches any
	// symbol whose enclosing scope is a package, whatever its own kind.
	KindPackageMember Kind = "package-member"
)

// Symbol is a single declaration extracted from a document.
// Symbols are immutable once produced.
type Symbol struct {
	Name      string         `json:"name"`
	Kind      Kind           `json:"kind"`
	DeclRange protocol.Range `json:"decl_range"` // identifier span
	FullRange protocol.Range `json:"full_range"` // span of the whole construct
	TypeRef   string         `json:"type_ref,omitempty"`
	Scope     string         `json:"scope,omitempty"`
	ScopeKind Kind           `json:"scope_kind,omitempty"`
	URI       uri.URI        `json:"uri"`
}

// HasTypeRef reports whether the symbol instantiates or belongs to a named type.
func (s Symbol) HasTypeRef() bool {
	return s.TypeRef != ""
}

// IsPackageMember reports whether the symbol was declared inside a package.
func (s Symbol) IsPackageMember() bool {
	return s.ScopeKind == KindPackage
}

// Location returns the declaration site as an LSP location.
func (s Symbol) Location() protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentURI(s.URI),
		Range: s.DeclRange,
	}
}

// Filter selects symbols by name and/or kind. Zero fields match anything;
// when both are set a symbol must satisfy both.
type Filter struct {
	Name string
	Kind Kind
}

// Match reports whether sym satisfies the filter.
func (f Filter) Match(sym Symbol) bool {
	if f.Name != "" && sym.Name != f.Name {
		return false
	}
	switch f.Kind {
	case "":
		return true
	case KindPackageMember:
		return sym.IsPackageMember()
	default:
		return sym.Kind == f.Kind
	}
}

// Select returns the symbols matching f, preserving order.
func Select(syms []Symbol, f Filter) []Symbol {
	var out []Symbol
	for _, s := range syms {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
