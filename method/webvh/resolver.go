// Package webvh resolves did:webvh identifiers by replaying a hash-chained,
// signed log of document versions, and authors such logs.
package webvh

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/internal/logger"
	"github.com/pilacorp/go-did-resolver/method/web"
	"github.com/pilacorp/go-did-resolver/resolver"
)

const MethodName = "webvh"

// Query parameters selecting a historical version.
const (
	QueryVersionID     = "versionId"
	QueryVersionNumber = "versionNumber"
	QueryVersionTime   = "versionTime"
)

// Resolver resolves did:webvh.
type Resolver struct{}

// New returns a did:webvh resolver.
func New() *Resolver { return &Resolver{} }

// Name implements resolver.Method.
func (r *Resolver) Name() string { return MethodName }

// Resolve fetches and replays the log of u.DID and returns the latest
// version, or the one selected by the query of u.
func (r *Resolver) Resolve(ctx context.Context, u did.URL, opts *resolver.Options) (*resolver.Result, error) {
	id := u.DID
	logURL, err := LogURL(id.ID)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "derive log URL")
	}

	body, err := resolver.Fetch(ctx, opts, id.String(), logURL)
	if err != nil {
		return nil, err
	}
	log, err := ParseLog(body)
	if err != nil {
		return nil, resolver.NewError(resolver.KindLogIntegrity, id.String(), err, "parse log")
	}

	versions, err := Replay(id, log, func() (WitnessFile, error) {
		target, err := WitnessURL(id.ID)
		if err != nil {
			return nil, err
		}
		data, err := resolver.Fetch(ctx, opts, id.String(), target)
		if err != nil {
			return nil, err
		}
		return ParseWitnessFile(data)
	})
	if err != nil {
		return nil, err
	}
	logger.ForDID("webvh", id).Debug("replayed DID log", "entries", len(versions))

	v, err := selectVersion(id, u, versions)
	if err != nil {
		return nil, err
	}

	state, err := json.Marshal(v.State)
	if err != nil {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id.String(), err, "encode state")
	}
	doc, err := web.ParseDocument(id, state)
	if err != nil {
		return nil, err
	}

	return &resolver.Result{
		Document:         doc,
		DocumentMetadata: metadata(versions, v),
		ResolutionMetadata: resolver.ResolutionMetadata{
			ContentType: resolver.ContentTypeDIDJSON,
			Method:      MethodName,
			Source:      logURL,
		},
	}, nil
}

// ResolvePath fetches a resource published next to the DID.
func (r *Resolver) ResolvePath(ctx context.Context, u did.URL, opts *resolver.Options) (*resolver.Resource, error) {
	base, err := baseURL(u.DID.ID)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, u.DID.String(), err, "derive URL")
	}
	body, err := resolver.Fetch(ctx, opts, u.DID.String(), base+u.EscapedPath())
	if err != nil {
		return nil, err
	}
	return &resolver.Resource{Content: body, ContentType: web.ContentType(u.Path)}, nil
}

func selectVersion(id did.DID, u did.URL, versions []Version) (Version, error) {
	latest := versions[len(versions)-1]

	if v, ok := u.QueryValue(QueryVersionID); ok {
		for _, candidate := range versions {
			if candidate.ID == v {
				return candidate, nil
			}
		}
		return Version{}, resolver.NewError(resolver.KindNotFound, id.String(), nil, "version %s", v)
	}

	if v, ok := u.QueryValue(QueryVersionNumber); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Version{}, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "versionNumber")
		}
		if n < 1 || n > len(versions) {
			return Version{}, resolver.NewError(resolver.KindNotFound, id.String(), nil, "version number %d", n)
		}
		return versions[n-1], nil
	}

	if v, ok := u.QueryValue(QueryVersionTime); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Version{}, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "versionTime")
		}
		var found *Version
		for i := range versions {
			if versions[i].Time.After(t) {
				break
			}
			found = &versions[i]
		}
		if found == nil {
			return Version{}, resolver.NewError(resolver.KindNotFound, id.String(), nil, "no version at %s", v)
		}
		return *found, nil
	}

	return latest, nil
}

func metadata(versions []Version, v Version) resolver.DocumentMetadata {
	return resolver.DocumentMetadata{
		Created:     versions[0].Time,
		Updated:     v.Time,
		VersionID:   v.ID,
		VersionTime: v.Time,
		Deactivated: v.Parameters.Deactivated,
		SCID:        v.Parameters.SCID,
		Portable:    v.Parameters.Portable,
		TTL:         v.Parameters.TTL,
	}
}
