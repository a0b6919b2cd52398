package document

import (
	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/multikey"
)

// Relationship names a verification relationship of a DID document.
type Relationship string

const (
	Authentication       Relationship = "authentication"
	AssertionMethod      Relationship = "assertionMethod"
	KeyAgreement         Relationship = "keyAgreement"
	CapabilityInvocation Relationship = "capabilityInvocation"
	CapabilityDelegation Relationship = "capabilityDelegation"
)

// Relationships lists every relationship in serialization order.
var Relationships = []Relationship{
	Authentication,
	AssertionMethod,
	KeyAgreement,
	CapabilityInvocation,
	CapabilityDelegation,
}

// Valid reports whether r is a known relationship.
func (r Relationship) Valid() bool {
	for _, known := range Relationships {
		if r == known {
			return true
		}
	}
	return false
}

// MethodType is the "type" of a verification method.
type MethodType string

const (
	TypeMultikey                          MethodType = "Multikey"
	TypeJSONWebKey2020                    MethodType = "JsonWebKey2020"
	TypeEd25519VerificationKey2020        MethodType = "Ed25519VerificationKey2020"
	TypeEd25519VerificationKey2018        MethodType = "Ed25519VerificationKey2018"
	TypeX25519KeyAgreementKey2020         MethodType = "X25519KeyAgreementKey2020"
	TypeX25519KeyAgreementKey2019         MethodType = "X25519KeyAgreementKey2019"
	TypeEcdsaSecp256k1VerificationKey2019 MethodType = "EcdsaSecp256k1VerificationKey2019"
)

// KeyEncoding selects how public key material is serialized.
type KeyEncoding int

const (
	EncodingMultibase KeyEncoding = iota
	EncodingJWK
	EncodingBase58
)

// VerificationMethod binds public key material to an identifier.
type VerificationMethod struct {
	ID         did.URL
	Type       MethodType
	Controller did.DID
	Key        multikey.Key
	Encoding   KeyEncoding
}

// DefaultEncoding returns the key encoding conventionally paired with t.
func DefaultEncoding(t MethodType) KeyEncoding {
	switch t {
	case TypeJSONWebKey2020:
		return EncodingJWK
	case TypeEd25519VerificationKey2018, TypeX25519KeyAgreementKey2019:
		return EncodingBase58
	}
	return EncodingMultibase
}

// base58KeyType maps legacy method types to the key carried in publicKeyBase58.
func base58KeyType(t MethodType) multikey.KeyType {
	switch t {
	case TypeEd25519VerificationKey2018:
		return multikey.Ed25519Public
	case TypeX25519KeyAgreementKey2019:
		return multikey.X25519Public
	case TypeEcdsaSecp256k1VerificationKey2019:
		return multikey.Secp256k1Public
	}
	return multikey.Unknown
}

// Service is a service endpoint entry. Endpoint is a URI string, a map or a
// list of either.
type Service struct {
	ID       did.URL
	Type     []string
	Endpoint any
}

// EndpointURI returns the endpoint when it is a single URI.
func (s Service) EndpointURI() (string, bool) {
	uri, ok := s.Endpoint.(string)
	return uri, ok
}

// HasType reports whether the service declares type t.
func (s Service) HasType(t string) bool {
	for _, st := range s.Type {
		if st == t {
			return true
		}
	}
	return false
}
