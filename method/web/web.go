// Package web resolves did:web identifiers by fetching did.json over https.
package web

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/resolver"
	"github.com/pilacorp/go-did-resolver/schema"
)

const (
	MethodName   = "web"
	DocumentFile = "did.json"
	wellKnown    = "/.well-known"
)

// Resolver resolves did:web.
type Resolver struct{}

// New returns a did:web resolver.
func New() *Resolver { return &Resolver{} }

// Name implements resolver.Method.
func (r *Resolver) Name() string { return MethodName }

// Resolve fetches and validates the document of u.DID.
func (r *Resolver) Resolve(ctx context.Context, u did.URL, opts *resolver.Options) (*resolver.Result, error) {
	id := u.DID
	target, err := FileURL(id.ID, DocumentFile)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "derive URL")
	}

	body, err := resolver.Fetch(ctx, opts, id.String(), target)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(id, body)
	if err != nil {
		return nil, err
	}
	return &resolver.Result{
		Document: doc,
		ResolutionMetadata: resolver.ResolutionMetadata{
			ContentType: resolver.ContentTypeDIDJSON,
			Method:      MethodName,
			Source:      target,
		},
	}, nil
}

// ResolvePath fetches the resource a DID URL path names, relative to the
// DID's base URL.
func (r *Resolver) ResolvePath(ctx context.Context, u did.URL, opts *resolver.Options) (*resolver.Resource, error) {
	base, _, err := BaseURL(u.DID.ID)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, u.DID.String(), err, "derive URL")
	}
	target := base + u.EscapedPath()

	body, err := resolver.Fetch(ctx, opts, u.DID.String(), target)
	if err != nil {
		return nil, err
	}
	return &resolver.Resource{Content: body, ContentType: ContentType(u.Path)}, nil
}

// ContentType guesses the media type of a path from its extension.
func ContentType(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ParseDocument validates raw against the document schema, parses it and
// checks that it describes id.
func ParseDocument(id did.DID, raw []byte) (*document.Document, error) {
	if err := schema.ValidateDocument(raw); err != nil {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id.String(), err, "")
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id.String(), err, "")
	}
	if doc.ID() != id {
		return nil, resolver.NewError(resolver.KindDIDMismatch, id.String(), nil, "document id %s", doc.ID())
	}
	return doc, nil
}

// BaseURL converts a did:web method-specific id into an https URL. Colons
// separate path segments and %3A encodes a port separator. hasPath reports
// whether the id names a path below the domain.
func BaseURL(msid string) (base string, hasPath bool, err error) {
	segments := strings.Split(msid, ":")
	for i, s := range segments {
		if s == "" {
			return "", false, resolver.NewError(resolver.KindInvalidDID, "", nil, "empty segment in %q", msid)
		}
		segments[i] = decodeColon(s)
	}

	host := segments[0]
	parsed, err := url.Parse("https://" + host)
	if err != nil || parsed.Hostname() == "" || parsed.Host != host {
		return "", false, resolver.NewError(resolver.KindInvalidDID, "", err, "invalid domain %q", host)
	}

	base = "https://" + strings.Join(segments, "/")
	return base, len(segments) > 1, nil
}

// FileURL returns the URL of file for a did:web style method-specific id.
// Without a path the file lives under /.well-known.
func FileURL(msid, file string) (string, error) {
	base, hasPath, err := BaseURL(msid)
	if err != nil {
		return "", err
	}
	if !hasPath {
		base += wellKnown
	}
	return base + "/" + file, nil
}

func decodeColon(s string) string {
	return strings.NewReplacer("%3A", ":", "%3a", ":").Replace(s)
}
