// Package resolver dispatches DID resolution to registered methods and
// defines the collaborators they use.
//
// The registry is built once and never mutated. Each resolution owns its
// inputs and outputs, so a Registry is safe for concurrent use as long as the
// supplied Fetcher is.
package resolver

import (
	"context"
	"time"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/keyservice"
)

// Fetcher retrieves the bytes at an https URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// Method resolves the DIDs of one DID method.
type Method interface {
	// Name is the method name as it appears in did:<name>:...
	Name() string
	// Resolve produces the document for u.DID. u carries the query of the
	// original DID URL so methods can honor version selection.
	Resolve(ctx context.Context, u did.URL, opts *Options) (*Result, error)
}

// PathHandler is implemented by methods that can dereference DID URL paths.
type PathHandler interface {
	ResolvePath(ctx context.Context, u did.URL, opts *Options) (*Resource, error)
}

// Options carries per-resolution collaborators.
type Options struct {
	Fetcher    Fetcher
	KeyService keyservice.KeyService
}

// Option configures Options.
type Option func(*Options)

// WithFetcher sets the fetcher used by network-backed methods.
func WithFetcher(f Fetcher) Option {
	return func(o *Options) { o.Fetcher = f }
}

// WithKeyService sets the key service.
func WithKeyService(ks keyservice.KeyService) Option {
	return func(o *Options) { o.KeyService = ks }
}

// Result is the outcome of a successful resolution.
type Result struct {
	Document           *document.Document `json:"didDocument"`
	DocumentMetadata   DocumentMetadata   `json:"didDocumentMetadata"`
	ResolutionMetadata ResolutionMetadata `json:"didResolutionMetadata"`
}

// DocumentMetadata describes the resolved document rather than the resolution.
type DocumentMetadata struct {
	Created     time.Time `json:"created,omitzero"`
	Updated     time.Time `json:"updated,omitzero"`
	VersionID   string    `json:"versionId,omitempty"`
	VersionTime time.Time `json:"versionTime,omitzero"`
	Deactivated bool      `json:"deactivated,omitempty"`
	SCID        string    `json:"scid,omitempty"`
	Portable    bool      `json:"portable,omitempty"`
	TTL         int       `json:"ttl,omitempty"`
}

// ResolutionMetadata describes how the document was obtained.
type ResolutionMetadata struct {
	ContentType string `json:"contentType,omitempty"`
	Method      string `json:"method,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Resource is the outcome of dereferencing a DID URL.
type Resource struct {
	document.Resource
	Content     []byte
	ContentType string
	Metadata    DocumentMetadata
}

// ContentTypeDIDJSON is the media type of a JSON DID document.
const ContentTypeDIDJSON = "application/did+json"
