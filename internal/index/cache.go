// Package index holds the per-document symbol indexes and the global
// include index built from package/include files.
package index

import (
	"context"
	"fmt"
	"sync"

	"go.lsp.dev/uri"
	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/hdlnav/internal/document"
	"github.com/mvp-joe/hdlnav/internal/symbol"
)

// Opener opens a document snapshot.
type Opener interface {
	Open(ctx context.Context, u uri.URI) (*document.Document, error)
}

// Extractor produces the symbols declared in a document.
type Extractor interface {
	Extract(ctx context.Context, doc *document.Document) ([]symbol.Symbol, error)
}

// State is the lifecycle state of a DocumentIndex.
type State int

const (
	// StateEmpty: never extracted.
	StateEmpty State = iota
	// StatePopulated: symbols reflect the document content.
	StatePopulated
	// StateInvalidated: the document was saved; the next query re-extracts.
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DocumentIndex is the symbol index of one document.
type DocumentIndex struct {
	uri uri.URI
	id  uint64

	mu         sync.Mutex
	state      State
	generation uint64
	symbols    []symbol.Symbol
}

// URI returns the indexed document.
func (d *DocumentIndex) URI() uri.URI {
	return d.uri
}

// State returns the current lifecycle state.
func (d *DocumentIndex) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DocumentIndex) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.symbols = nil
	if d.state == StatePopulated {
		d.state = StateInvalidated
	}
}

// Cache maps open documents to their indexes. Indexes are created on first
// access and populated lazily on first query. At most one extraction per
// document is in flight; concurrent queries share its result.
type Cache struct {
	opener    Opener
	extractor Extractor

	mu     sync.Mutex
	docs   map[uri.URI]*DocumentIndex
	nextID uint64

	flight singleflight.Group
}

// NewCache creates an empty document cache.
func NewCache(opener Opener, extractor Extractor) *Cache {
	return &Cache{
		opener:    opener,
		extractor: extractor,
		docs:      make(map[uri.URI]*DocumentIndex),
	}
}

// Get returns the index slot for u, creating an empty one if needed.
// It does not extract.
func (c *Cache) Get(u uri.URI) *DocumentIndex {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.docs[u]
	if !ok {
		c.nextID++
		idx = &DocumentIndex{uri: u, id: c.nextID}
		c.docs[u] = idx
	}
	return idx
}

// Has reports whether u has a slot in the cache.
func (c *Cache) Has(u uri.URI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.docs[u]
	return ok
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Invalidate clears the symbols of u while keeping its slot, so the next
// query re-extracts. Unknown documents are ignored.
func (c *Cache) Invalidate(u uri.URI) {
	c.mu.Lock()
	idx, ok := c.docs[u]
	c.mu.Unlock()
	if ok {
		idx.invalidate()
	}
}

// Evict removes u from the cache entirely.
func (c *Cache) Evict(u uri.URI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, u)
}

// Symbols returns every symbol of u in extraction order.
func (c *Cache) Symbols(ctx context.Context, u uri.URI) ([]symbol.Symbol, error) {
	return c.ensure(ctx, c.Get(u))
}

// Query returns the symbols of u matching f. A document without matches
// yields an empty result; errors come only from opening or extracting.
func (c *Cache) Query(ctx context.Context, u uri.URI, f symbol.Filter) ([]symbol.Symbol, error) {
	syms, err := c.ensure(ctx, c.Get(u))
	if err != nil {
		return nil, err
	}
	return symbol.Select(syms, f), nil
}

func (c *Cache) ensure(ctx context.Context, idx *DocumentIndex) ([]symbol.Symbol, error) {
	idx.mu.Lock()
	if idx.state == StatePopulated {
		syms := idx.symbols
		idx.mu.Unlock()
		return syms, nil
	}
	gen := idx.generation
	idx.mu.Unlock()

	// Keyed by slot and generation: a query after Invalidate or Evict never
	// joins an extraction of stale content.
	key := fmt.Sprintf("%s#%d#%d", idx.uri, idx.id, gen)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.extract(context.WithoutCancel(ctx), idx, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]symbol.Symbol), nil
	}
}

func (c *Cache) extract(ctx context.Context, idx *DocumentIndex, gen uint64) ([]symbol.Symbol, error) {
	doc, err := c.opener.Open(ctx, idx.uri)
	if err != nil {
		return nil, err
	}
	syms, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract symbols from %s: %w", idx.uri.Filename(), err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	// An Invalidate that raced with this extraction wins: the result is
	// handed to the waiting callers but not stored.
	if idx.generation == gen {
		idx.symbols = syms
		idx.state = StatePopulated
	}
	return syms, nil
}
