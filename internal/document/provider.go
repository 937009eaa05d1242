package document

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/maypok86/otter"
	"go.lsp.dev/uri"
)

// DefaultCapacity is the number of documents kept in memory by a Provider.
const DefaultCapacity = 1024

// Provider opens documents from disk. Opened snapshots are cached so that
// repeated opens of the same document are cheap and return the same
// content until Forget is called. Overlays hold unsaved editor content and
// take precedence over the file on disk.
type Provider struct {
	docs otter.Cache[uri.URI, *Document]

	mu       sync.RWMutex
	overlays map[uri.URI]string
}

// NewProvider creates a provider caching up to capacity documents.
func NewProvider(capacity int) (*Provider, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	docs, err := otter.MustBuilder[uri.URI, *Document](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build document cache: %w", err)
	}
	return &Provider{
		docs:     docs,
		overlays: make(map[uri.URI]string),
	}, nil
}

// Open returns the document for u.
func (p *Provider) Open(ctx context.Context, u uri.URI) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	text, ok := p.overlays[u]
	p.mu.RUnlock()
	if ok {
		return New(u, text), nil
	}

	if doc, ok := p.docs.Get(u); ok {
		return doc, nil
	}

	content, err := os.ReadFile(u.Filename())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", u.Filename(), err)
	}
	doc := New(u, string(content))
	p.docs.Set(u, doc)
	return doc, nil
}

// SetContent installs unsaved content for u.
func (p *Provider) SetContent(u uri.URI, text string) {
	p.mu.Lock()
	p.overlays[u] = text
	p.mu.Unlock()
	p.docs.Delete(u)
}

// ClearContent removes any overlay for u so the next open reads from disk.
func (p *Provider) ClearContent(u uri.URI) {
	p.mu.Lock()
	delete(p.overlays, u)
	p.mu.Unlock()
	p.docs.Delete(u)
}

// Forget drops the cached snapshot of u. Called when the file changes on disk.
func (p *Provider) Forget(u uri.URI) {
	p.docs.Delete(u)
}

// Close releases the document cache.
func (p *Provider) Close() {
	p.docs.Close()
}
