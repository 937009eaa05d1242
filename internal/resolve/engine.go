// Package resolve finds the declarations an HDL identifier refers to.
//
// Resolution tries a fixed sequence of strategies and returns the first
// non-empty answer:
//
//  1. Through an instance: a named port or parameter connection on an
//     instantiation, or a dotted reference through an instance name, is
//     looked up in the file defining the instance's type.
//  2. The global include index, returning every package member of that name.
//  3. A scoped reference to a known module or package, returning the first
//     match in the scope's file.
//  4. The current document.
//
// Collaborator failures (a file that cannot be opened, extraction errors)
// are logged and treated as "no answer" so the next strategy runs.
package resolve

import (
	"context"
	"fmt"
	"log"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Locator resolves a module, interface or package name to its defining file.
type Locator interface {
	FindDefiningFile(ctx context.Context, name string) (uri.URI, bool)
	IsKnownModule(name string) bool
}

// forgetter is implemented by openers that keep document snapshots.
type forgetter interface {
	Forget(u uri.URI)
}

// Strategy names the resolution step that produced an answer.
type Strategy string

const (
	StrategyNone           Strategy = "none"
	StrategyInstanceMember Strategy = "instance-member"
	StrategyHierarchical   Strategy = "hierarchical"
	StrategyIncludeIndex   Strategy = "include-index"
	StrategyQualifiedScope Strategy = "qualified-scope"
	StrategyLocal          Strategy = "local"
)

// Explanation describes how a position was resolved.
type Explanation struct {
	URI      uri.URI           `json:"uri"`
	Position protocol.Position `json:"position"`
	Access   *Access           `json:"access,omitempty"` // nil when there is no word at Position
	Strategy Strategy          `json:"strategy"`
	Symbols  []symbol.Symbol   `json:"symbols"`
}

// Engine owns the document cache and include index and answers resolution
// requests against them.
type Engine struct {
	opener   index.Opener
	cache    *index.Cache
	includes *index.IncludeIndex
	locator  Locator
}

// New creates an engine. The opener must be the one backing cache.
func New(opener index.Opener, cache *index.Cache, includes *index.IncludeIndex, locator Locator) *Engine {
	return &Engine{
		opener:   opener,
		cache:    cache,
		includes: includes,
		locator:  locator,
	}
}

// Cache returns the document cache.
func (e *Engine) Cache() *index.Cache {
	return e.cache
}

// Includes returns the global include index.
func (e *Engine) Includes() *index.IncludeIndex {
	return e.includes
}

// Resolve returns the declarations the identifier at pos refers to. An
// empty result means nothing was found; the only error is cancellation.
func (e *Engine) Resolve(ctx context.Context, u uri.URI, pos protocol.Position) ([]symbol.Symbol, error) {
	ex, err := e.Explain(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	return ex.Symbols, nil
}

// ResolveLocations is Resolve reduced to declaration locations.
func (e *Engine) ResolveLocations(ctx context.Context, u uri.URI, pos protocol.Position) ([]protocol.Location, error) {
	syms, err := e.Resolve(ctx, u, pos)
	if err != nil {
		return nil, err
	}
	locs := make([]protocol.Location, 0, len(syms))
	for _, s := range syms {
		locs = append(locs, s.Location())
	}
	return locs, nil
}

// Explain resolves pos and reports the classification and the strategy
// that produced the answer.
func (e *Engine) Explain(ctx context.Context, u uri.URI, pos protocol.Position) (*Explanation, error) {
	ex := &Explanation{URI: u, Position: pos, Strategy: StrategyNone, Symbols: []symbol.Symbol{}}

	doc, err := e.opener.Open(ctx, u)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("Warning: failed to open %s: %v", u.Filename(), err)
		return ex, nil
	}

	r, ok := doc.WordRangeAt(pos)
	if !ok {
		return ex, nil
	}
	access := Classify(doc, r)
	ex.Access = &access

	var syms []symbol.Symbol
	var strategy Strategy
	switch access.Kind {
	case MemberPortAccess:
		syms, err = e.instanceMember(ctx, u, pos, access)
		strategy = StrategyInstanceMember
	case HierarchicalAccess:
		syms, err = e.hierarchical(ctx, u, access)
		strategy = StrategyHierarchical
	}
	if err != nil {
		return nil, err
	}
	if len(syms) > 0 {
		ex.Strategy = strategy
		ex.Symbols = syms
		return ex, nil
	}

	if syms := e.includes.Lookup(access.Target); len(syms) > 0 {
		ex.Strategy = StrategyIncludeIndex
		ex.Symbols = syms
		return ex, nil
	}

	if e.locator.IsKnownModule(access.Target) || e.locator.IsKnownModule(access.Parent) {
		syms, err := e.findInScope(ctx, access.Parent, access.Target)
		if err != nil {
			return nil, err
		}
		// Packages are often declared in several places; keep the first.
		if len(syms) > 0 {
			ex.Strategy = StrategyQualifiedScope
			ex.Symbols = syms[:1]
			return ex, nil
		}
	}

	syms, err = e.query(ctx, u, symbol.Filter{Name: access.Target})
	if err != nil {
		return nil, err
	}
	if len(syms) > 0 {
		ex.Strategy = StrategyLocal
		ex.Symbols = syms
	}
	return ex, nil
}

// instanceMember resolves a named connection against the first instance
// statement enclosing pos.
func (e *Engine) instanceMember(ctx context.Context, u uri.URI, pos protocol.Position, a Access) ([]symbol.Symbol, error) {
	insts, err := e.query(ctx, u, symbol.Filter{Kind: symbol.KindInstance})
	if err != nil {
		return nil, err
	}
	for _, inst := range insts {
		if !symbol.Contains(inst.FullRange, pos) {
			continue
		}
		if !inst.HasTypeRef() {
			return nil, nil
		}
		return e.findInScope(ctx, inst.TypeRef, a.Target)
	}
	return nil, nil
}

// hierarchical resolves "parent.target" through the type of parent.
func (e *Engine) hierarchical(ctx context.Context, u uri.URI, a Access) ([]symbol.Symbol, error) {
	parents, err := e.query(ctx, u, symbol.Filter{Name: a.Parent})
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 || !parents[0].HasTypeRef() {
		return nil, nil
	}
	return e.findInScope(ctx, parents[0].TypeRef, a.Target)
}

// findInScope returns the symbols named target in the file defining scope.
func (e *Engine) findInScope(ctx context.Context, scope, target string) ([]symbol.Symbol, error) {
	file, ok := e.locator.FindDefiningFile(ctx, scope)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.query(ctx, file, symbol.Filter{Name: target})
}

// query reads the document cache. Only cancellation is returned as an
// error; any other failure is logged and yields no symbols.
func (e *Engine) query(ctx context.Context, u uri.URI, f symbol.Filter) ([]symbol.Symbol, error) {
	syms, err := e.cache.Query(ctx, u, f)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("Warning: failed to index %s: %v", u.Filename(), err)
		return nil, nil
	}
	return syms, nil
}

// DidSave invalidates the saved document so the next query re-extracts it.
func (e *Engine) DidSave(u uri.URI) {
	if f, ok := e.opener.(forgetter); ok {
		f.Forget(u)
	}
	e.cache.Invalidate(u)
}

// DidClose evicts the closed document from the cache.
func (e *Engine) DidClose(u uri.URI) {
	if f, ok := e.opener.(forgetter); ok {
		f.Forget(u)
	}
	e.cache.Evict(u)
}

// BuildIncludes rebuilds the global include index.
func (e *Engine) BuildIncludes(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error) {
	stats, err := e.includes.Build(ctx, opts, progress)
	if err != nil && ctx.Err() == nil {
		return stats, fmt.Errorf("failed to build include index: %w", err)
	}
	return stats, err
}

// ConfigChanged rescans the configured include directories. When every
// include file is indexed the configuration does not affect the index and
// nothing is rebuilt; (nil, nil) is returned.
func (e *Engine) ConfigChanged(ctx context.Context, opts index.BuildOptions, progress index.ProgressReporter) (*index.BuildStats, error) {
	if opts.IndexAll {
		return nil, nil
	}
	return e.BuildIncludes(ctx, opts, progress)
}
