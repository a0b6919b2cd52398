package keyservice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/crypto"
	"github.com/pilacorp/go-did-resolver/multikey"
)

func newSigningServer(t *testing.T, backing *Memory) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sign", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in struct {
			KeyID      string `json:"key_id"`
			PayloadHex string `json:"payload_hex"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		payload, err := hex.DecodeString(in.PayloadHex)
		require.NoError(t, err)

		sig, err := backing.Sign(r.Context(), in.KeyID, payload)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"signature_hex": hex.EncodeToString(sig)})
	})
	mux.HandleFunc("GET /keys/{id}", func(w http.ResponseWriter, r *http.Request) {
		pub, err := backing.PublicKey(r.Context(), r.PathValue("id"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"public_key_multibase": pub.Multibase()})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory()
	pub, err := backing.Generate("signing-key", multikey.Ed25519Public)
	require.NoError(t, err)

	srv := newSigningServer(t, backing)

	ks, err := NewRemote(srv.URL, "secret", WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	got, err := ks.PublicKey(ctx, "signing-key")
	require.NoError(t, err)
	assert.True(t, pub.Equal(got))

	sig, err := ks.Sign(ctx, "signing-key", []byte("hello"))
	require.NoError(t, err)
	assert.NoError(t, crypto.Verify(pub, []byte("hello"), sig))

	_, err = ks.Sign(ctx, "unknown", []byte("hello"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	unauthorized, err := NewRemote(srv.URL, "wrong")
	require.NoError(t, err)
	_, err = unauthorized.Sign(ctx, "signing-key", []byte("hello"))
	assert.ErrorIs(t, err, ErrSigning)
}

func TestNewRemoteRequiresEndpoint(t *testing.T) {
	_, err := NewRemote("  ", "")
	assert.Error(t, err)
}
