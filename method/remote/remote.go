// Package remote delegates resolution of selected methods to a universal
// resolver style HTTP endpoint.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/internal/logger"
	"github.com/pilacorp/go-did-resolver/method/web"
	"github.com/pilacorp/go-did-resolver/resolver"
)

const (
	identifiersPath = "/1.0/identifiers/"
	acceptHeader    = `application/ld+json;profile="https://w3id.org/did-resolution", application/did+json;q=0.9`
	maxResponse     = 1 << 20
)

// Resolver resolves one DID method through a remote endpoint.
type Resolver struct {
	method  string
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client. Its transport is wrapped for tracing.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		copied := *c
		copied.Transport = otelhttp.NewTransport(transportOf(c))
		r.client = &copied
	}
}

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(r *Resolver) { r.apiKey = key }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.client.Timeout = d }
}

func transportOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

// New returns a resolver for method backed by the endpoint at baseURL.
func New(baseURL, method string, opts ...Option) *Resolver {
	r := &Resolver{
		method:  method,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements resolver.Method.
func (r *Resolver) Name() string { return r.method }

type resolutionResult struct {
	Document json.RawMessage `json:"didDocument"`
	Metadata json.RawMessage `json:"didDocumentMetadata"`
}

// Resolve asks the endpoint for u. The query of u is forwarded so the remote
// side can select versions.
func (r *Resolver) Resolve(ctx context.Context, u did.URL, _ *resolver.Options) (*resolver.Result, error) {
	id := u.DID.String()
	target := r.baseURL + identifiersPath + url.PathEscape(did.URL{DID: u.DID, Query: u.Query}.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, resolver.NewError(resolver.KindTransport, id, err, "build request")
	}
	req.Header.Set("Accept", acceptHeader)
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, resolver.NewError(resolver.KindTransport, id, err, "failed to make HTTP request to DID resolver")
	}
	defer resp.Body.Close()

	if err := statusError(id, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse+1))
	if err != nil {
		return nil, resolver.NewError(resolver.KindTransport, id, err, "read response body")
	}
	if len(body) > maxResponse {
		return nil, resolver.NewError(resolver.KindMalformedDocument, id, nil, "response exceeds %d bytes", maxResponse)
	}

	raw, meta := unwrap(id, body)
	doc, err := web.ParseDocument(u.DID, raw)
	if err != nil {
		return nil, err
	}

	return &resolver.Result{
		Document:         doc,
		DocumentMetadata: meta,
		ResolutionMetadata: resolver.ResolutionMetadata{
			ContentType: resolver.ContentTypeDIDJSON,
			Method:      r.method,
			Source:      target,
		},
	}, nil
}

// unwrap accepts either a resolution result or a bare document. Metadata the
// remote side encodes differently is dropped.
func unwrap(id string, body []byte) (json.RawMessage, resolver.DocumentMetadata) {
	var res resolutionResult
	if err := json.Unmarshal(body, &res); err != nil || len(res.Document) == 0 {
		return body, resolver.DocumentMetadata{}
	}
	var meta resolver.DocumentMetadata
	if len(res.Metadata) > 0 {
		if err := json.Unmarshal(res.Metadata, &meta); err != nil {
			logger.Component("remote").Debug("ignoring remote document metadata", "did", id, "error", err)
			meta = resolver.DocumentMetadata{}
		}
	}
	return res.Document, meta
}

func statusError(id string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	detail := fmt.Sprintf("DID resolver API returned non-200 status: %s", resp.Status)
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return resolver.NewError(resolver.KindNotFound, id, nil, "%s", detail)
	case http.StatusBadRequest:
		return resolver.NewError(resolver.KindInvalidDID, id, nil, "%s", detail)
	case http.StatusNotAcceptable:
		return resolver.NewError(resolver.KindRepresentationNotSupported, id, nil, "%s", detail)
	case http.StatusNotImplemented:
		return resolver.NewError(resolver.KindMethodNotSupported, id, nil, "%s", detail)
	}
	return resolver.NewError(resolver.KindTransport, id, nil, "%s", detail)
}
