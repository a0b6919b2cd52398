package keyservice

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-resolver/multikey"
)

// Remote is a key service backed by an HTTP signing API.
//
//	POST {endpoint}/sign         {"key_id": "...", "payload_hex": "..."} -> {"signature_hex": "..."}
//	GET  {endpoint}/keys/{keyID} -> {"public_key_multibase": "..."}
type Remote struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the HTTP client. Its transport is wrapped with
// OpenTelemetry instrumentation.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		clone := *c
		clone.Transport = otelhttp.NewTransport(transportOf(c))
		r.client = &clone
	}
}

// NewRemote creates a new Remote key service.
func NewRemote(endpoint, apiKey string, opts ...RemoteOption) (*Remote, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}

	r := &Remote{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Sign signs a payload using the remote API.
func (r *Remote) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]any{
		"key_id":      keyID,
		"payload_hex": hex.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		SignatureHex string `json:"signature_hex"`
	}
	if err := r.do(ctx, http.MethodPost, r.endpoint+"/sign", reqBody, &out); err != nil {
		return nil, err
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: signature_hex: %v", ErrSigning, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrSigning)
	}
	return sig, nil
}

// PublicKey fetches the public key of keyID from the remote API.
func (r *Remote) PublicKey(ctx context.Context, keyID string) (multikey.Key, error) {
	var out struct {
		PublicKeyMultibase string `json:"public_key_multibase"`
	}
	if err := r.do(ctx, http.MethodGet, r.endpoint+"/keys/"+url.PathEscape(keyID), nil, &out); err != nil {
		return multikey.Key{}, err
	}
	k, err := multikey.Decode(out.PublicKeyMultibase)
	if err != nil {
		return multikey.Key{}, err
	}
	if k.Type.IsPrivate() {
		return multikey.Key{}, fmt.Errorf("keyservice: remote returned private key material for %s", keyID)
	}
	return k, nil
}

func (r *Remote) do(ctx context.Context, method, target string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: remote key service http %d", ErrKeyNotFound, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: remote key service http %d", ErrSigning, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("keyservice: decode response: %w", err)
	}
	return nil
}

func transportOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}
