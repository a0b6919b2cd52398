package document

import (
	"slices"
	"strings"

	"github.com/pilacorp/go-did-resolver/did"
)

// Query parameters understood by Dereference.
const (
	QueryService     = "service"
	QueryRelativeRef = "relativeRef"
)

// Resource is the result of dereferencing a DID URL against a document.
// Exactly one of Document, VerificationMethod or Service is set; URL is set
// alongside Service when a service endpoint was selected through the query.
type Resource struct {
	Document           *Document
	VerificationMethod *VerificationMethod
	Service            *Service
	URL                string
}

// Dereference selects the part of d addressed by u. Query filters run before
// fragment selection. Paths are not handled here.
func (d *Document) Dereference(u did.URL) (Resource, error) {
	if !d.covers(u.DID) {
		return Resource{}, errorf(KindIDMismatch, "%s is not a URL of %s", u, d.id)
	}
	if u.Path != "" {
		return Resource{}, errorf(KindPathNotSupported, "%s", u)
	}

	if name, ok := u.QueryValue(QueryService); ok {
		return d.dereferenceService(u, name)
	}

	if u.Fragment == "" {
		if u.DID != d.id {
			return Resource{}, errorf(KindIDMismatch, "%s is not a URL of %s", u, d.id)
		}
		return Resource{Document: d}, nil
	}

	target := u.DID.URL().WithFragment(u.Fragment)
	if vm, ok := d.VerificationMethod(target); ok {
		return Resource{VerificationMethod: &vm}, nil
	}
	if s, ok := d.Service(target); ok {
		return Resource{Service: &s}, nil
	}
	return Resource{}, errorf(KindFragmentNotFound, "%s", u)
}

func (d *Document) dereferenceService(u did.URL, name string) (Resource, error) {
	s, ok := d.Service(u.DID.URL().WithFragment(name))
	if !ok {
		return Resource{}, errorf(KindFragmentNotFound, "service %q in %s", name, u.DID)
	}
	res := Resource{Service: &s}

	endpoint, ok := s.EndpointURI()
	if !ok {
		return res, nil
	}
	rel, _ := u.QueryValue(QueryRelativeRef)
	res.URL = joinRelative(endpoint, rel)
	if u.Fragment != "" {
		res.URL += "#" + u.Fragment
	}
	return res, nil
}

// covers reports whether URLs of id may address entries of d: the document
// DID itself or one of its controllers.
func (d *Document) covers(id did.DID) bool {
	return id == d.id || slices.Contains(d.controllers, id)
}

func joinRelative(base, rel string) string {
	if rel == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
