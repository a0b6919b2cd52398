package didresolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/config"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/keyservice"
	"github.com/pilacorp/go-did-resolver/method/key"
	"github.com/pilacorp/go-did-resolver/method/webvh"
	"github.com/pilacorp/go-did-resolver/multikey"
	"github.com/pilacorp/go-did-resolver/proof"
	"github.com/pilacorp/go-did-resolver/resolver"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	b, ok := m[url]
	if !ok {
		return nil, resolver.NewError(resolver.KindNotFound, "", nil, "%s", url)
	}
	return b, nil
}

func TestNewRegistersBuiltins(t *testing.T) {
	r, err := New(WithFetcher(mapFetcher{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"jwk", "key", "web", "webvh"}, r.Methods())

	_, err = r.Resolve(context.Background(), "did:example:123")
	assert.ErrorIs(t, err, resolver.ErrMethodNotSupported)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Methods = []string{"key"}
	cfg.RemoteResolverURL = "https://resolver.example.com"
	cfg.RemoteMethods = []string{"ion"}

	r, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ion", "key"}, r.Methods())

	cfg.Methods = []string{"nope"}
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}

func TestResolveAcrossMethods(t *testing.T) {
	ctx := context.Background()
	ks := keyservice.NewMemory()
	pub, err := ks.Generate("k1", multikey.Ed25519Public)
	require.NoError(t, err)

	id, log, err := webvh.Create(ctx, ks, webvh.CreateParams{
		Location:    "example.com",
		SigningKey:  "k1",
		VersionTime: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	data, err := log.MarshalJSONL()
	require.NoError(t, err)

	keyDID, err := key.FromKey(pub)
	require.NoError(t, err)

	r, err := New(WithFetcher(mapFetcher{"https://example.com/.well-known/did.jsonl": data}), WithConcurrency(2))
	require.NoError(t, err)

	results := r.ResolveAll(ctx, []string{keyDID.String(), id.String(), "did:web:missing.example", "not-a-did"})
	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.ErrorIs(t, results[2].Err, resolver.ErrNotFound)
	assert.ErrorIs(t, results[3].Err, resolver.ErrInvalidDID)

	auth := results[0].Result.Document.ResolveRelationship(document.Authentication)
	require.Len(t, auth, 1)
	assert.True(t, pub.Equal(auth[0].Key))
}

func TestVerifyProofs(t *testing.T) {
	ctx := context.Background()
	ks := keyservice.NewMemory()
	pub, err := ks.Generate("k1", multikey.Ed25519Public)
	require.NoError(t, err)

	mb := pub.Multibase()
	payload := proof.JSONMap{"hello": "world"}
	p, err := proof.Create(ctx, ks, "k1", key.MethodURL(mb), payload)
	require.NoError(t, err)
	require.NoError(t, payload.AddProof(p))

	r, err := New(WithFetcher(mapFetcher{}))
	require.NoError(t, err)
	require.NoError(t, r.VerifyProofs(ctx, payload))

	payload["hello"] = "mars"
	assert.ErrorIs(t, r.VerifyProofs(ctx, payload), proof.ErrSignatureInvalid)

	assert.ErrorIs(t, r.VerifyProofs(ctx, proof.JSONMap{"hello": "world"}), proof.ErrMalformedProof)
}

func TestVerifyProofsHistoricalKey(t *testing.T) {
	ctx := context.Background()
	ks := keyservice.NewMemory()
	_, err := ks.Generate("update", multikey.Ed25519Public)
	require.NoError(t, err)
	oldKey, err := ks.Generate("old", multikey.Ed25519Public)
	require.NoError(t, err)
	newKey, err := ks.Generate("new", multikey.Ed25519Public)
	require.NoError(t, err)

	withKey := func(k multikey.Key) func(string) proof.JSONMap {
		return func(id string) proof.JSONMap {
			return proof.JSONMap{
				"@context": []any{document.ContextDIDv1},
				"id":       id,
				"verificationMethod": []any{map[string]any{
					"id":                 id + "#signing",
					"type":               "Multikey",
					"controller":         id,
					"publicKeyMultibase": k.Multibase(),
				}},
				"assertionMethod": []any{"#signing"},
			}
		}
	}

	id, log, err := webvh.Create(ctx, ks, webvh.CreateParams{
		Location:   "example.com",
		SigningKey: "update",
		State:      withKey(oldKey),
	})
	require.NoError(t, err)
	log, err = webvh.Update(ctx, ks, id, log, webvh.UpdateParams{
		SigningKey: "update",
		State:      withKey(newKey)(id.String()),
	})
	require.NoError(t, err)
	data, err := log.MarshalJSONL()
	require.NoError(t, err)

	r, err := New(WithFetcher(mapFetcher{"https://example.com/.well-known/did.jsonl": data}))
	require.NoError(t, err)

	pinned := proof.JSONMap{"hello": "world"}
	p, err := proof.Create(ctx, ks, "old", id.String()+"?versionId="+log[0].VersionID+"#signing", pinned)
	require.NoError(t, err)
	require.NoError(t, pinned.AddProof(p))
	require.NoError(t, r.VerifyProofs(ctx, pinned))

	latest := proof.JSONMap{"hello": "world"}
	p, err = proof.Create(ctx, ks, "old", id.String()+"#signing", latest)
	require.NoError(t, err)
	require.NoError(t, latest.AddProof(p))
	assert.ErrorIs(t, r.VerifyProofs(ctx, latest), proof.ErrSignatureInvalid)
}
