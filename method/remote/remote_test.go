package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/resolver"
)

const exampleDoc = `{
  "id": "did:example:123",
  "verificationMethod": [{
    "id": "#key-1",
    "type": "Multikey",
    "controller": "did:example:123",
    "publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
  }],
  "assertionMethod": ["#key-1"]
}`

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RawPath+"|"+r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "application/did+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func resolve(t *testing.T, srv *httptest.Server, input string) (*resolver.Result, error) {
	t.Helper()
	u, err := did.ParseURL(input)
	require.NoError(t, err)
	return New(srv.URL+"/", "example", WithHTTPClient(srv.Client())).Resolve(context.Background(), u, nil)
}

func TestResolveBareDocument(t *testing.T) {
	srv, paths := newServer(t, http.StatusOK, exampleDoc)

	res, err := resolve(t, srv, "did:example:123")
	require.NoError(t, err)
	assert.Equal(t, "did:example:123", res.Document.ID().String())
	assert.Len(t, res.Document.VerificationMethods(), 1)
	assert.Equal(t, "example", res.ResolutionMetadata.Method)
	require.Len(t, *paths, 1)
	assert.Contains(t, (*paths)[0], "/1.0/identifiers/did:example:123")
}

func TestResolveResolutionResult(t *testing.T) {
	body := `{
  "didDocument": ` + exampleDoc + `,
  "didDocumentMetadata": {"created": "2024-05-01T10:00:00Z", "versionId": "3", "deactivated": true},
  "didResolutionMetadata": {"contentType": "application/did+ld+json"}
}`
	srv, paths := newServer(t, http.StatusOK, body)

	res, err := resolve(t, srv, "did:example:123?versionId=3")
	require.NoError(t, err)
	assert.Equal(t, "3", res.DocumentMetadata.VersionID)
	assert.True(t, res.DocumentMetadata.Deactivated)
	assert.True(t, res.DocumentMetadata.Created.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.Len(t, *paths, 1)
	assert.Contains(t, (*paths)[0], "did:example:123?versionId=3")
}

func TestResolveIgnoresForeignMetadata(t *testing.T) {
	body := `{"didDocument": ` + exampleDoc + `, "didDocumentMetadata": {"created": "yesterday"}}`
	srv, _ := newServer(t, http.StatusOK, body)

	res, err := resolve(t, srv, "did:example:123")
	require.NoError(t, err)
	assert.True(t, res.DocumentMetadata.Created.IsZero())
}

func TestResolveSendsAPIKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(exampleDoc))
	}))
	defer srv.Close()

	u, err := did.ParseURL("did:example:123")
	require.NoError(t, err)
	_, err = New(srv.URL, "example", WithHTTPClient(srv.Client()), WithAPIKey("k-1")).Resolve(context.Background(), u, nil)
	require.NoError(t, err)
	assert.Equal(t, "k-1", got)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		retryable bool
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: resolver.ErrNotFound},
		{name: "bad request", status: http.StatusBadRequest, wantErr: resolver.ErrInvalidDID},
		{name: "not implemented", status: http.StatusNotImplemented, wantErr: resolver.ErrMethodNotSupported},
		{name: "server error", status: http.StatusBadGateway, wantErr: resolver.ErrTransport, retryable: true},
		{name: "garbage", status: http.StatusOK, body: "not json", wantErr: resolver.ErrMalformedDocument},
		{name: "other did", status: http.StatusOK, body: `{"id":"did:example:456"}`, wantErr: resolver.ErrDIDMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			_, err := resolve(t, srv, "did:example:123")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, resolver.IsRetryable(err))
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, exampleDoc)
	srv.Close()

	_, err := resolve(t, srv, "did:example:123")
	assert.ErrorIs(t, err, resolver.ErrTransport)
	assert.True(t, resolver.IsRetryable(err))
}
