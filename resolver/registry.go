package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/internal/logger"
)

// Registry maps method names to resolvers. It is immutable after NewRegistry.
type Registry struct {
	methods  map[string]Method
	defaults []Option
}

// NewRegistry builds a registry from methods. Options given here apply to
// every resolution and can be overridden per call.
func NewRegistry(methods []Method, opts ...Option) (*Registry, error) {
	r := &Registry{
		methods:  make(map[string]Method, len(methods)),
		defaults: append([]Option(nil), opts...),
	}
	for _, m := range methods {
		name := m.Name()
		if _, dup := r.methods[name]; dup {
			return nil, fmt.Errorf("resolver: method %q registered twice", name)
		}
		r.methods[name] = m
	}
	return r, nil
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether method is registered.
func (r *Registry) Supports(method string) bool {
	_, ok := r.methods[method]
	return ok
}

func (r *Registry) options(opts []Option) *Options {
	o := &Options{}
	for _, opt := range r.defaults {
		opt(o)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve parses input as a DID or DID URL and resolves its DID. Query
// parameters such as versionId are passed to the method.
func (r *Registry) Resolve(ctx context.Context, input string, opts ...Option) (*Result, error) {
	u, err := did.ParseURL(input)
	if err != nil {
		return nil, NewError(KindInvalidDID, input, err, "parse")
	}
	return r.ResolveURL(ctx, u, opts...)
}

// ResolveURL resolves the DID of an already parsed DID URL.
func (r *Registry) ResolveURL(ctx context.Context, u did.URL, opts ...Option) (*Result, error) {
	m, ok := r.methods[u.Method]
	if !ok {
		return nil, NewError(KindMethodNotSupported, u.DID.String(), nil, "method %q", u.Method)
	}

	log := logger.ForDID("resolver", u.DID)
	log.Debug("resolving DID")

	res, err := m.Resolve(ctx, u, r.options(opts))
	if err != nil {
		log.Warn("DID resolution failed", "error", err)
		return nil, err
	}
	if res.Document == nil {
		return nil, NewError(KindMalformedDocument, u.DID.String(), nil, "method returned no document")
	}
	if res.Document.ID() != u.DID {
		return nil, NewError(KindDIDMismatch, u.DID.String(), nil, "document id %s", res.Document.ID())
	}
	if res.ResolutionMetadata.Method == "" {
		res.ResolutionMetadata.Method = u.Method
	}
	if res.ResolutionMetadata.ContentType == "" {
		res.ResolutionMetadata.ContentType = ContentTypeDIDJSON
	}
	return res, nil
}

// Dereference resolves a DID URL to the resource it names. Paths are
// delegated to methods implementing PathHandler; fragments and service
// queries are applied to the resolved document.
func (r *Registry) Dereference(ctx context.Context, input string, opts ...Option) (*Resource, error) {
	u, err := did.ParseURL(input)
	if err != nil {
		return nil, NewError(KindInvalidDID, input, err, "parse")
	}

	if u.Path != "" {
		m, ok := r.methods[u.Method]
		if !ok {
			return nil, NewError(KindMethodNotSupported, u.DID.String(), nil, "method %q", u.Method)
		}
		if h, ok := m.(PathHandler); ok {
			return h.ResolvePath(ctx, u, r.options(opts))
		}
	}

	res, err := r.ResolveURL(ctx, u, opts...)
	if err != nil {
		return nil, err
	}
	selected, err := res.Document.Dereference(u)
	if err != nil {
		return nil, err
	}
	return &Resource{Resource: selected, ContentType: res.ResolutionMetadata.ContentType, Metadata: res.DocumentMetadata}, nil
}
