// Package fetcher implements resolver.Fetcher over HTTPS.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-resolver/internal/logger"
	"github.com/pilacorp/go-did-resolver/resolver"
)

// Default values
const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxResponseBytes = 1 << 20
	DefaultUserAgent        = "go-did-resolver"

	// Accept lists the representations DID methods fetch.
	Accept = "application/did+json, application/json, application/jsonl, */*;q=0.1"
)

// HTTPS fetches documents over https only.
type HTTPS struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// Option configures an HTTPS fetcher.
type Option func(*HTTPS)

// WithHTTPClient uses c for requests. Its transport is wrapped with
// OpenTelemetry instrumentation and redirects to non-https URLs are refused.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPS) {
		clone := *c
		base := c.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		clone.Transport = otelhttp.NewTransport(base)
		clone.CheckRedirect = httpsOnlyRedirects
		if clone.Timeout == 0 {
			clone.Timeout = f.client.Timeout
		}
		f.client = &clone
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPS) { f.client.Timeout = d }
}

// WithMaxResponseBytes caps the accepted body size.
func WithMaxResponseBytes(n int64) Option {
	return func(f *HTTPS) { f.maxBytes = n }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPS) { f.userAgent = ua }
}

// New returns an HTTPS fetcher.
func New(opts ...Option) *HTTPS {
	f := &HTTPS{
		client: &http.Client{
			Timeout:       DefaultTimeout,
			Transport:     otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: httpsOnlyRedirects,
		},
		maxBytes:  DefaultMaxResponseBytes,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ resolver.Fetcher = (*HTTPS)(nil)

// Fetch performs a GET on target. Non-https URLs fail with
// resolver.ErrInsecureTransport, 404 and 410 with resolver.ErrNotFound and
// every other failure with a retryable resolver.ErrTransport.
func (f *HTTPS) Fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, &resolver.Error{Kind: resolver.KindTransport, Detail: "invalid URL", Err: err}
	}
	if u.Scheme != "https" {
		return nil, &resolver.Error{Kind: resolver.KindInsecureTransport, Detail: target}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &resolver.Error{Kind: resolver.KindTransport, Detail: "build request", Err: err}
	}
	req.Header.Set("Accept", Accept)
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errInsecureRedirect) {
			return nil, &resolver.Error{Kind: resolver.KindInsecureTransport, Detail: target, Err: err}
		}
		return nil, &resolver.Error{Kind: resolver.KindTransport, Detail: "GET " + target, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, &resolver.Error{Kind: resolver.KindNotFound, Detail: fmt.Sprintf("GET %s: %s", target, resp.Status)}
	case resp.StatusCode != http.StatusOK:
		return nil, &resolver.Error{Kind: resolver.KindTransport, Detail: fmt.Sprintf("GET %s: %s", target, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &resolver.Error{Kind: resolver.KindTransport, Detail: "read body", Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		logger.Component("fetcher").Warn("response exceeds size limit", "url", target, "limit", f.maxBytes)
		return nil, &resolver.Error{Kind: resolver.KindMalformedDocument, Detail: fmt.Sprintf("response from %s exceeds %d bytes", target, f.maxBytes)}
	}
	return body, nil
}

var errInsecureRedirect = errors.New("redirect to non-https URL")

func httpsOnlyRedirects(req *http.Request, via []*http.Request) error {
	if req.URL.Scheme != "https" {
		return errInsecureRedirect
	}
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return nil
}
