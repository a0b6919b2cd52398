package proof

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/piprate/json-gold/ld"
)

// Fetcher retrieves remote JSON-LD contexts. resolver.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocumentLoader serves JSON-LD contexts to the RDFC cryptosuites. Preloaded
// contexts are served from memory; anything else goes through the fetcher,
// and fails when there is none. Loaded contexts are cached per loader. It is
// safe for concurrent use.
type DocumentLoader struct {
	ctx     context.Context
	fetcher Fetcher

	mu    sync.Mutex
	cache map[string]*ld.RemoteDocument
}

// LoaderOption configures a DocumentLoader.
type LoaderOption func(*DocumentLoader)

// WithContextFetcher lets the loader fetch contexts it does not hold.
func WithContextFetcher(ctx context.Context, f Fetcher) LoaderOption {
	return func(l *DocumentLoader) {
		l.ctx = ctx
		l.fetcher = f
	}
}

// Preload registers doc as the context document served for url.
func Preload(url string, doc any) LoaderOption {
	return func(l *DocumentLoader) {
		l.cache[url] = &ld.RemoteDocument{DocumentURL: url, Document: doc}
	}
}

// NewDocumentLoader returns a loader. Without WithContextFetcher it never
// touches the network.
func NewDocumentLoader(opts ...LoaderOption) *DocumentLoader {
	l := &DocumentLoader{ctx: context.Background(), cache: map[string]*ld.RemoteDocument{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDocument implements ld.DocumentLoader.
func (l *DocumentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	l.mu.Lock()
	doc, ok := l.cache[u]
	l.mu.Unlock()
	if ok {
		return doc, nil
	}
	if l.fetcher == nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, fmt.Sprintf("context %s is not preloaded", u))
	}

	data, err := l.fetcher.Fetch(l.ctx, u)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	parsed, err := ld.DocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc = &ld.RemoteDocument{DocumentURL: u, Document: parsed}

	l.mu.Lock()
	l.cache[u] = doc
	l.mu.Unlock()
	return doc, nil
}
