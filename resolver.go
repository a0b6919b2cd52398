// Package didresolver wires the built-in DID methods, the HTTPS fetcher and
// optional remote resolution into a ready-to-use resolver.
package didresolver

import (
	"context"
	"fmt"

	"github.com/pilacorp/go-did-resolver/config"
	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/fetcher"
	"github.com/pilacorp/go-did-resolver/internal/logger"
	"github.com/pilacorp/go-did-resolver/keyservice"
	"github.com/pilacorp/go-did-resolver/method/jwk"
	"github.com/pilacorp/go-did-resolver/method/key"
	"github.com/pilacorp/go-did-resolver/method/remote"
	"github.com/pilacorp/go-did-resolver/method/web"
	"github.com/pilacorp/go-did-resolver/method/webvh"
	"github.com/pilacorp/go-did-resolver/proof"
	"github.com/pilacorp/go-did-resolver/resolver"
)

// Resolver resolves and dereferences DIDs of every registered method.
type Resolver struct {
	*resolver.Registry
	fetcher     resolver.Fetcher
	concurrency int
}

type settings struct {
	fetcher     resolver.Fetcher
	keyService  keyservice.KeyService
	methods     []resolver.Method
	extra       []resolver.Method
	concurrency int
}

// Option configures New.
type Option func(*settings)

// WithFetcher replaces the default HTTPS fetcher.
func WithFetcher(f resolver.Fetcher) Option {
	return func(s *settings) { s.fetcher = f }
}

// WithKeyService makes ks available to methods.
func WithKeyService(ks keyservice.KeyService) Option {
	return func(s *settings) { s.keyService = ks }
}

// WithMethods replaces the built-in methods.
func WithMethods(methods ...resolver.Method) Option {
	return func(s *settings) { s.methods = methods }
}

// WithExtraMethods registers methods next to the built-in ones.
func WithExtraMethods(methods ...resolver.Method) Option {
	return func(s *settings) { s.extra = append(s.extra, methods...) }
}

// WithConcurrency bounds ResolveAll.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.concurrency = n }
}

// BuiltinMethods returns fresh instances of the built-in methods.
func BuiltinMethods() []resolver.Method {
	return []resolver.Method{key.New(), jwk.New(), web.New(), webvh.New()}
}

// New returns a resolver for did:key, did:jwk, did:web and did:webvh.
func New(opts ...Option) (*Resolver, error) {
	s := &settings{methods: BuiltinMethods(), concurrency: 8}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetcher.New()
	}

	ropts := []resolver.Option{resolver.WithFetcher(s.fetcher)}
	if s.keyService != nil {
		ropts = append(ropts, resolver.WithKeyService(s.keyService))
	}
	methods := append(append([]resolver.Method(nil), s.methods...), s.extra...)
	reg, err := resolver.NewRegistry(methods, ropts...)
	if err != nil {
		return nil, err
	}
	return &Resolver{Registry: reg, fetcher: s.fetcher, concurrency: s.concurrency}, nil
}

// NewFromConfig builds a resolver from host configuration. It also applies
// the configured log level.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)

	builtin := make(map[string]resolver.Method)
	for _, m := range BuiltinMethods() {
		builtin[m.Name()] = m
	}
	methods := make([]resolver.Method, 0, len(cfg.Methods)+len(cfg.RemoteMethods))
	for _, name := range cfg.Methods {
		m, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("didresolver: unknown method %q", name)
		}
		methods = append(methods, m)
	}

	var remoteOpts []remote.Option
	if cfg.RemoteAPIKey != "" {
		remoteOpts = append(remoteOpts, remote.WithAPIKey(cfg.RemoteAPIKey))
	}
	remoteOpts = append(remoteOpts, remote.WithTimeout(cfg.FetchTimeout))
	for _, name := range cfg.RemoteMethods {
		methods = append(methods, remote.New(cfg.RemoteResolverURL, name, remoteOpts...))
	}

	base := []Option{
		WithMethods(methods...),
		WithConcurrency(cfg.BatchConcurrency),
		WithFetcher(fetcher.New(
			fetcher.WithTimeout(cfg.FetchTimeout),
			fetcher.WithMaxResponseBytes(cfg.MaxResponseBytes),
			fetcher.WithUserAgent(cfg.UserAgent),
		)),
	}
	r, err := New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	logger.Info("DID resolver ready", "methods", r.Methods())
	return r, nil
}

// ResolveAll resolves inputs in parallel with the configured concurrency.
func (r *Resolver) ResolveAll(ctx context.Context, inputs []string, opts ...resolver.Option) []resolver.BatchResult {
	return r.Registry.ResolveAll(ctx, inputs, r.concurrency, opts...)
}

// VerifyProofs verifies every proof attached to payload against the
// document of the DID its verification method belongs to. A query on the
// verification method, such as versionId, selects the document version.
// Remote JSON-LD contexts are loaded through the resolver's fetcher unless
// opts carry a document loader.
func (r *Resolver) VerifyProofs(ctx context.Context, payload proof.JSONMap, opts ...proof.Option) error {
	proofs, err := payload.Proofs()
	if err != nil {
		return err
	}
	if len(proofs) == 0 {
		return proof.ErrMalformedProof
	}
	loader := proof.NewDocumentLoader(proof.WithContextFetcher(ctx, r.fetcher))
	opts = append([]proof.Option{proof.WithDocumentLoader(loader)}, opts...)
	for _, p := range proofs {
		u, err := did.ParseURL(p.VerificationMethod)
		if err != nil {
			return fmt.Errorf("%w: %v", proof.ErrMalformedProof, err)
		}
		res, err := r.ResolveURL(ctx, did.URL{DID: u.DID, Query: u.Query})
		if err != nil {
			return err
		}
		if err := proof.Verify(res.Document, payload, p, opts...); err != nil {
			return err
		}
	}
	return nil
}
