// Package key resolves did:key identifiers. The document is derived from the
// identifier alone and resolution never touches the network.
package key

import (
	"context"
	"errors"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/multikey"
	"github.com/pilacorp/go-did-resolver/resolver"
)

// MethodName is the DID method handled by this package.
const MethodName = "key"

// ContextMultikey is the JSON-LD context of Multikey verification methods.
const ContextMultikey = "https://w3id.org/security/multikey/v1"

// Resolver resolves did:key.
type Resolver struct {
	legacyTypes bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLegacyTypes emits Ed25519VerificationKey2020 / X25519KeyAgreementKey2020
// method types instead of Multikey.
func WithLegacyTypes() Option {
	return func(r *Resolver) { r.legacyTypes = true }
}

// New returns a did:key resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements resolver.Method.
func (r *Resolver) Name() string { return MethodName }

// Resolve implements resolver.Method.
func (r *Resolver) Resolve(_ context.Context, u did.URL, _ *resolver.Options) (*resolver.Result, error) {
	doc, err := r.Document(u.DID)
	if err != nil {
		return nil, err
	}
	return &resolver.Result{
		Document:           doc,
		ResolutionMetadata: resolver.ResolutionMetadata{ContentType: resolver.ContentTypeDIDJSON, Method: MethodName},
	}, nil
}

// Document synthesizes the document of a did:key DID.
func (r *Resolver) Document(id did.DID) (*document.Document, error) {
	if id.Method != MethodName {
		return nil, resolver.NewError(resolver.KindMethodNotSupported, id.String(), nil, "not a did:key")
	}

	k, err := multikey.Decode(id.ID)
	if err != nil {
		kind := resolver.KindCodec
		if errors.Is(err, multikey.ErrInvalidEncoding) {
			kind = resolver.KindInvalidDID
		}
		return nil, resolver.NewError(kind, id.String(), err, "decode method-specific id")
	}
	if k.Type.IsPrivate() {
		return nil, resolver.NewError(resolver.KindCodec, id.String(), multikey.ErrUnsupportedKeyType, "did:key must encode a public key")
	}

	vm := document.VerificationMethod{
		ID:         id.URL().WithFragment(id.ID),
		Type:       r.methodType(k.Type),
		Controller: id,
		Key:        k,
		Encoding:   document.EncodingMultibase,
	}

	doc, err := document.NewBuilder(id).
		Context([]any{document.ContextDIDv1, ContextMultikey}).
		VerificationMethod(vm, Relationships(k.Type)...).
		Build()
	if err != nil {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id.String(), err, "build document")
	}
	return doc, nil
}

func (r *Resolver) methodType(t multikey.KeyType) document.MethodType {
	if !r.legacyTypes {
		return document.TypeMultikey
	}
	switch t {
	case multikey.Ed25519Public:
		return document.TypeEd25519VerificationKey2020
	case multikey.X25519Public:
		return document.TypeX25519KeyAgreementKey2020
	}
	return document.TypeMultikey
}

// Relationships returns the relationships a key of type t is listed under.
func Relationships(t multikey.KeyType) []document.Relationship {
	if t == multikey.X25519Public {
		return []document.Relationship{document.KeyAgreement}
	}
	return []document.Relationship{
		document.Authentication,
		document.AssertionMethod,
		document.CapabilityInvocation,
		document.CapabilityDelegation,
	}
}

// FromKey returns the did:key DID for a public key.
func FromKey(k multikey.Key) (did.DID, error) {
	if k.Type.IsPrivate() {
		return did.DID{}, multikey.ErrUnsupportedKeyType
	}
	s, err := multikey.Encode(k.Type, k.Bytes)
	if err != nil {
		return did.DID{}, err
	}
	return did.DID{Method: MethodName, ID: s}, nil
}

// MethodURL returns the verification method URL did:key:<mb>#<mb> for a
// multibase public key.
func MethodURL(multibaseKey string) string {
	return "did:key:" + multibaseKey + "#" + multibaseKey
}
