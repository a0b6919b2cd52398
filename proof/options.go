package proof

import (
	"time"

	"github.com/piprate/json-gold/ld"

	"github.com/pilacorp/go-did-resolver/document"
)

// Options holds settings for Create and Verify.
type Options struct {
	Cryptosuite    string
	Purpose        document.Relationship
	Created        time.Time
	Challenge      string
	Domain         string
	DocumentLoader ld.DocumentLoader
}

// Option configures Options.
type Option func(*Options)

// WithCryptosuite selects the cryptosuite used by Create.
func WithCryptosuite(name string) Option {
	return func(o *Options) { o.Cryptosuite = name }
}

// WithPurpose sets the proof purpose. Defaults to assertionMethod.
func WithPurpose(rel document.Relationship) Option {
	return func(o *Options) { o.Purpose = rel }
}

// WithCreated fixes the creation timestamp.
func WithCreated(t time.Time) Option {
	return func(o *Options) { o.Created = t }
}

// WithChallenge sets the challenge bound into the proof.
func WithChallenge(challenge string) Option {
	return func(o *Options) { o.Challenge = challenge }
}

// WithDomain sets the domain bound into the proof.
func WithDomain(domain string) Option {
	return func(o *Options) { o.Domain = domain }
}

// WithDocumentLoader sets the JSON-LD document loader used by RDFC
// cryptosuites. The default is a fresh NewDocumentLoader per call, which
// only resolves inline contexts.
func WithDocumentLoader(loader ld.DocumentLoader) Option {
	return func(o *Options) { o.DocumentLoader = loader }
}

func buildOptions(opts []Option) *Options {
	o := &Options{Purpose: document.AssertionMethod}
	for _, opt := range opts {
		opt(o)
	}
	if o.DocumentLoader == nil {
		o.DocumentLoader = NewDocumentLoader()
	}
	return o
}
