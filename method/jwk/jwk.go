// Package jwk resolves did:jwk identifiers, whose method-specific id is the
// base64url encoding of a public JWK.
package jwk

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/jsoncanonicalizer"
	"github.com/pilacorp/go-did-resolver/multikey"
	"github.com/pilacorp/go-did-resolver/resolver"
)

const (
	MethodName     = "jwk"
	ContextJWS2020 = "https://w3id.org/security/suites/jws-2020/v1"
)

// Resolver resolves did:jwk.
type Resolver struct{}

// New returns a did:jwk resolver.
func New() *Resolver { return &Resolver{} }

// Name implements resolver.Method.
func (r *Resolver) Name() string { return MethodName }

// Resolve implements resolver.Method.
func (r *Resolver) Resolve(_ context.Context, u did.URL, _ *resolver.Options) (*resolver.Result, error) {
	doc, err := Document(u.DID)
	if err != nil {
		return nil, err
	}
	return &resolver.Result{
		Document:           doc,
		ResolutionMetadata: resolver.ResolutionMetadata{ContentType: resolver.ContentTypeDIDJSON, Method: MethodName},
	}, nil
}

// Document synthesizes the document of a did:jwk DID. The single method is
// named #0.
func Document(id did.DID) (*document.Document, error) {
	raw, err := base64.RawURLEncoding.DecodeString(id.ID)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "method-specific id is not base64url")
	}
	j, err := multikey.ParseJWK(raw)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "method-specific id is not a JWK")
	}
	if j.IsPrivate() {
		return nil, resolver.NewError(resolver.KindCodec, id.String(), nil, "did:jwk must not carry private key material")
	}
	k, err := multikey.FromJWK(j)
	if err != nil {
		kind := resolver.KindCodec
		if errors.Is(err, multikey.ErrInvalidEncoding) {
			kind = resolver.KindInvalidDID
		}
		return nil, resolver.NewError(kind, id.String(), err, "decode JWK")
	}

	vm := document.VerificationMethod{
		ID:         id.URL().WithFragment("0"),
		Type:       document.TypeJSONWebKey2020,
		Controller: id,
		Key:        k,
		Encoding:   document.EncodingJWK,
	}

	doc, err := document.NewBuilder(id).
		Context([]any{document.ContextDIDv1, ContextJWS2020}).
		VerificationMethod(vm, relationships(k.Type, j.Use)...).
		Build()
	if err != nil {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id.String(), err, "build document")
	}
	return doc, nil
}

func relationships(t multikey.KeyType, use string) []document.Relationship {
	signing := []document.Relationship{
		document.Authentication,
		document.AssertionMethod,
		document.CapabilityInvocation,
		document.CapabilityDelegation,
	}
	switch {
	case t == multikey.X25519Public, use == "enc":
		return []document.Relationship{document.KeyAgreement}
	case use == "sig":
		return signing
	}
	// Without "use", EC keys may also agree keys.
	if t == multikey.P256Public || t == multikey.Secp256k1Public {
		return append(signing, document.KeyAgreement)
	}
	return signing
}

// FromJWK creates the did:jwk DID for a public JWK. The JWK is canonicalized
// first, so equal keys always produce the same DID.
func FromJWK(j multikey.JWK) (did.DID, error) {
	if j.IsPrivate() {
		return did.DID{}, errors.New("jwk: refusing to embed private key material")
	}
	if _, err := multikey.FromJWK(j); err != nil {
		return did.DID{}, err
	}
	canonical, err := jsoncanonicalizer.Marshal(j)
	if err != nil {
		return did.DID{}, err
	}
	return did.DID{Method: MethodName, ID: base64.RawURLEncoding.EncodeToString(canonical)}, nil
}
