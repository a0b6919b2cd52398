package resolver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/multikey"
)

type stubMethod struct {
	name  string
	calls atomic.Int32
	docID func(u did.URL) did.DID
	paths bool
}

func (s *stubMethod) Name() string { return s.name }

func (s *stubMethod) Resolve(_ context.Context, u did.URL, _ *Options) (*Result, error) {
	s.calls.Add(1)
	id := u.DID
	if s.docID != nil {
		id = s.docID(u)
	}
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	k, err := multikey.New(multikey.Ed25519Public, pub)
	if err != nil {
		return nil, err
	}
	doc, err := document.NewBuilder(id).
		VerificationMethod(document.VerificationMethod{
			ID: id.URL().WithFragment("k"), Type: document.TypeMultikey, Controller: id, Key: k,
		}, document.Authentication).
		Build()
	if err != nil {
		return nil, err
	}
	return &Result{Document: doc}, nil
}

type pathMethod struct{ stubMethod }

func (p *pathMethod) ResolvePath(_ context.Context, u did.URL, _ *Options) (*Resource, error) {
	return &Resource{Content: []byte("content of " + u.Path), ContentType: "text/plain"}, nil
}

func TestRegistryResolve(t *testing.T) {
	m := &stubMethod{name: "example"}
	r, err := NewRegistry([]Method{m})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "did:example:123")
	require.NoError(t, err)
	assert.Equal(t, "did:example:123", res.Document.ID().String())
	assert.Equal(t, ContentTypeDIDJSON, res.ResolutionMetadata.ContentType)
	assert.Equal(t, "example", res.ResolutionMetadata.Method)
	assert.Equal(t, []string{"example"}, r.Methods())
}

func TestRegistryErrors(t *testing.T) {
	mismatch := &stubMethod{name: "liar", docID: func(did.URL) did.DID { return did.DID{Method: "liar", ID: "other"} }}
	r, err := NewRegistry([]Method{&stubMethod{name: "example"}, mismatch})
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "unparseable", input: "did:Example:1", wantErr: ErrInvalidDID},
		{name: "unregistered method", input: "did:nope:1", wantErr: ErrMethodNotSupported},
		{name: "document for another DID", input: "did:liar:1", wantErr: ErrDIDMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Method{&stubMethod{name: "a"}, &stubMethod{name: "a"}})
	assert.Error(t, err)
}

func TestRegistryDereference(t *testing.T) {
	r, err := NewRegistry([]Method{&stubMethod{name: "example"}, &pathMethod{stubMethod{name: "files"}}})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := r.Dereference(ctx, "did:example:123#k")
	require.NoError(t, err)
	require.NotNil(t, res.VerificationMethod)
	assert.Equal(t, "did:example:123#k", res.VerificationMethod.ID.String())

	_, err = r.Dereference(ctx, "did:example:123#missing")
	assert.ErrorIs(t, err, document.ErrFragmentNotFound)

	_, err = r.Dereference(ctx, "did:example:123/path")
	assert.ErrorIs(t, err, document.ErrPathNotSupported)

	res, err = r.Dereference(ctx, "did:files:abc/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "content of /readme.txt", string(res.Content))
}

func TestResolveAll(t *testing.T) {
	m := &stubMethod{name: "example"}
	r, err := NewRegistry([]Method{m})
	require.NoError(t, err)

	inputs := []string{"did:example:1", "did:nope:2", "did:example:3", "did:example:4"}
	results := r.ResolveAll(context.Background(), inputs, 2)

	require.Len(t, results, len(inputs))
	for i, res := range results {
		assert.Equal(t, inputs[i], res.Input)
	}
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrMethodNotSupported)
	assert.Equal(t, "did:example:4", results[3].Result.Document.ID().String())
	assert.Equal(t, int32(3), m.calls.Load())
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	ok := &Options{Fetcher: FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		calls.Add(1)
		return []byte(url), nil
	})}

	body, err := Fetch(ctx, ok, "did:web:example.com", "https://example.com/.well-known/did.json")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/.well-known/did.json", string(body))

	_, err = Fetch(ctx, ok, "did:web:example.com", "http://example.com/.well-known/did.json")
	assert.ErrorIs(t, err, ErrInsecureTransport)
	assert.Equal(t, int32(1), calls.Load())

	failing := &Options{Fetcher: FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection reset")
	})}
	_, err = Fetch(ctx, failing, "did:web:example.com", "https://example.com/did.json")
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsRetryable(err))

	notFound := &Options{Fetcher: FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, &Error{Kind: KindNotFound}
	})}
	_, err = Fetch(ctx, notFound, "did:web:example.com", "https://example.com/did.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "did:web:example.com")

	_, err = Fetch(ctx, &Options{}, "did:web:example.com", "https://example.com/did.json")
	assert.ErrorIs(t, err, ErrTransport)
}
