package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/resolver"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/did.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, Accept, r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"id":"did:web:example.com"}`))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	f := New(WithHTTPClient(srv.Client()), WithMaxResponseBytes(32))
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/.well-known/did.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"did:web:example.com"}`, string(body))

	tests := []struct {
		name      string
		url       string
		wantErr   error
		retryable bool
	}{
		{name: "not found", url: srv.URL + "/missing", wantErr: resolver.ErrNotFound},
		{name: "server error", url: srv.URL + "/boom", wantErr: resolver.ErrTransport, retryable: true},
		{name: "too large", url: srv.URL + "/big", wantErr: resolver.ErrMalformedDocument},
		{name: "plaintext", url: strings.Replace(srv.URL, "https://", "http://", 1), wantErr: resolver.ErrInsecureTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(ctx, tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, resolver.IsRetryable(err))
		})
	}
}

func TestFetchRefusesDowngradeRedirect(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(plain.Close)

	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, plain.URL, http.StatusFound)
	}))
	t.Cleanup(tlsSrv.Close)

	f := New(WithHTTPClient(tlsSrv.Client()))
	_, err := f.Fetch(context.Background(), tlsSrv.URL)
	assert.ErrorIs(t, err, resolver.ErrInsecureTransport)
}
