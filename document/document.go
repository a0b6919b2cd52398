// Package document models DID documents.
//
// A Document is immutable once built. Verification methods live in a single
// arena; relationships hold indices into it, so a relationship can only name
// a method the document actually contains. Use Builder to construct
// documents and Parse to read their JSON form.
package document

import (
	"bytes"
	"slices"

	"github.com/pilacorp/go-did-resolver/did"
)

// ContextDIDv1 is the base JSON-LD context of DID documents.
const ContextDIDv1 = "https://www.w3.org/ns/did/v1"

type entry struct {
	index    int
	embedded bool
}

// Document is a finalized DID document.
type Document struct {
	context       any
	id            did.DID
	controllers   []did.DID
	alsoKnownAs   []string
	methods       []VerificationMethod
	embedded      []VerificationMethod
	relationships map[Relationship][]entry
	services      []Service
}

// ID returns the DID the document describes.
func (d *Document) ID() did.DID { return d.id }

// Context returns a copy of the @context value.
func (d *Document) Context() any { return cloneValue(d.context) }

// Controllers returns the document controllers.
func (d *Document) Controllers() []did.DID { return append([]did.DID(nil), d.controllers...) }

// AlsoKnownAs returns the alternative identifiers of the subject.
func (d *Document) AlsoKnownAs() []string { return append([]string(nil), d.alsoKnownAs...) }

// VerificationMethods returns the methods declared in verificationMethod.
func (d *Document) VerificationMethods() []VerificationMethod {
	out := make([]VerificationMethod, len(d.methods))
	for i, vm := range d.methods {
		out[i] = cloneMethod(vm)
	}
	return out
}

// Services returns the service entries.
func (d *Document) Services() []Service {
	out := make([]Service, len(d.services))
	for i, s := range d.services {
		out[i] = cloneService(s)
	}
	return out
}

// ResolveRelationship returns the verification methods authorized for rel,
// following references into the declared methods.
func (d *Document) ResolveRelationship(rel Relationship) []VerificationMethod {
	entries := d.relationships[rel]
	out := make([]VerificationMethod, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneMethod(d.at(e)))
	}
	return out
}

// RelationshipIDs returns the method ids listed under rel.
func (d *Document) RelationshipIDs(rel Relationship) []did.URL {
	entries := d.relationships[rel]
	out := make([]did.URL, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneURL(d.at(e).ID))
	}
	return out
}

// HasRelationship reports whether the method id is listed under rel.
func (d *Document) HasRelationship(rel Relationship, id did.URL) bool {
	for _, e := range d.relationships[rel] {
		if d.at(e).ID.Equal(id) {
			return true
		}
	}
	return false
}

// VerificationMethod looks up a method by id among declared and embedded
// methods.
func (d *Document) VerificationMethod(id did.URL) (VerificationMethod, bool) {
	for _, vm := range d.methods {
		if vm.ID.Equal(id) {
			return cloneMethod(vm), true
		}
	}
	for _, vm := range d.embedded {
		if vm.ID.Equal(id) {
			return cloneMethod(vm), true
		}
	}
	return VerificationMethod{}, false
}

// Service looks up a service by id.
func (d *Document) Service(id did.URL) (Service, bool) {
	for _, s := range d.services {
		if s.ID.Equal(id) {
			return cloneService(s), true
		}
	}
	return Service{}, false
}

func (d *Document) at(e entry) VerificationMethod {
	if e.embedded {
		return d.embedded[e.index]
	}
	return d.methods[e.index]
}

func cloneURL(u did.URL) did.URL {
	u.Query = slices.Clone(u.Query)
	return u
}

func cloneMethod(vm VerificationMethod) VerificationMethod {
	vm.ID = cloneURL(vm.ID)
	vm.Key.Bytes = bytes.Clone(vm.Key.Bytes)
	return vm
}

func cloneService(s Service) Service {
	s.ID = cloneURL(s.ID)
	s.Type = slices.Clone(s.Type)
	s.Endpoint = cloneValue(s.Endpoint)
	return s
}

// cloneValue deep-copies decoded JSON values.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
