package webvh

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/keyservice"
	"github.com/pilacorp/go-did-resolver/multikey"
	"github.com/pilacorp/go-did-resolver/proof"
	"github.com/pilacorp/go-did-resolver/resolver"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ks   *keyservice.Memory
	keys map[string]string
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	f := &fixture{ks: keyservice.NewMemory(), keys: map[string]string{}}
	for _, id := range ids {
		pub, err := f.ks.Generate(id, multikey.Ed25519Public)
		require.NoError(t, err)
		f.keys[id] = pub.Multibase()
	}
	return f
}

func (f *fixture) hash(t *testing.T, id string) string {
	t.Helper()
	h, err := KeyHash(f.keys[id])
	require.NoError(t, err)
	return h
}

func stateWithKey(mb string) func(string) proof.JSONMap {
	return func(id string) proof.JSONMap {
		return proof.JSONMap{
			"@context": []any{document.ContextDIDv1},
			"id":       id,
			"verificationMethod": []any{map[string]any{
				"id":                 id + "#key-1",
				"type":               "Multikey",
				"controller":         id,
				"publicKeyMultibase": mb,
			}},
			"assertionMethod": []any{"#key-1"},
		}
	}
}

func (f *fixture) create(t *testing.T, p CreateParams) (did.DID, Log) {
	t.Helper()
	if p.Location == "" {
		p.Location = "example.com"
	}
	if p.SigningKey == "" {
		p.SigningKey = "k1"
	}
	if p.VersionTime.IsZero() {
		p.VersionTime = t0
	}
	id, log, err := Create(context.Background(), f.ks, p)
	require.NoError(t, err)
	return id, log
}

func serve(t *testing.T, files map[string][]byte) resolver.Fetcher {
	t.Helper()
	return resolver.FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		b, ok := files[url]
		if !ok {
			return nil, resolver.NewError(resolver.KindNotFound, "", nil, "%s", url)
		}
		return b, nil
	})
}

func jsonl(t *testing.T, log Log) []byte {
	t.Helper()
	data, err := log.MarshalJSONL()
	require.NoError(t, err)
	return data
}

// mutate rewrites entry i of the serialized log and parses it again.
func mutate(t *testing.T, log Log, i int, f func(m map[string]any)) Log {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(jsonl(t, log)), []byte("\n"))
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[i], &m))
	f(m)
	line, err := json.Marshal(m)
	require.NoError(t, err)
	lines[i] = line
	parsed, err := ParseLog(bytes.Join(lines, []byte("\n")))
	require.NoError(t, err)
	return parsed
}

func flip(s string) string {
	last := s[len(s)-1]
	repl := byte('A')
	if last == 'A' {
		repl = 'B'
	}
	return s[:len(s)-1] + string(repl)
}

func TestLogURL(t *testing.T) {
	tests := []struct {
		msid    string
		log     string
		witness string
		wantErr bool
	}{
		{
			msid:    "QmfGEUAcMpzo25kF2Rhn8L5FAXysfGnkzjwdKoNPi615XQ:example.com",
			log:     "https://example.com/.well-known/did.jsonl",
			witness: "https://example.com/.well-known/did-witness.json",
		},
		{
			msid:    "QmfGEUAcMpzo25kF2Rhn8L5FAXysfGnkzjwdKoNPi615XQ:example.com:dids:alice",
			log:     "https://example.com/dids/alice/did.jsonl",
			witness: "https://example.com/dids/alice/did-witness.json",
		},
		{
			msid:    "QmfGEUAcMpzo25kF2Rhn8L5FAXysfGnkzjwdKoNPi615XQ:example.com%3A8443",
			log:     "https://example.com:8443/.well-known/did.jsonl",
			witness: "https://example.com:8443/.well-known/did-witness.json",
		},
		{msid: "example.com", wantErr: true},
		{msid: "0OIl:example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.msid, func(t *testing.T) {
			logURL, err := LogURL(tt.msid)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.log, logURL)

			witnessURL, err := WitnessURL(tt.msid)
			require.NoError(t, err)
			assert.Equal(t, tt.witness, witnessURL)
		})
	}
}

func TestCreateAndResolve(t *testing.T) {
	f := newFixture(t, "k1")
	id, log := f.create(t, CreateParams{State: stateWithKey(f.keys["k1"]), TTL: 3600})

	require.Len(t, log, 1)
	scid, location, err := splitMSID(id.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.com", location)
	assert.Equal(t, scid, log[0].Parameters.SCID)
	assert.True(t, strings.HasPrefix(log[0].VersionID, "1-"))
	assert.NotContains(t, string(jsonl(t, log)), Placeholder)

	fetch := serve(t, map[string][]byte{"https://example.com/.well-known/did.jsonl": jsonl(t, log)})
	res, err := New().Resolve(context.Background(), id.URL(), &resolver.Options{Fetcher: fetch})
	require.NoError(t, err)

	assert.Equal(t, id, res.Document.ID())
	vms := res.Document.ResolveRelationship(document.AssertionMethod)
	require.Len(t, vms, 1)
	assert.Equal(t, f.keys["k1"], vms[0].Key.Multibase())

	meta := res.DocumentMetadata
	assert.Equal(t, scid, meta.SCID)
	assert.Equal(t, log[0].VersionID, meta.VersionID)
	assert.True(t, meta.Created.Equal(t0))
	assert.True(t, meta.Updated.Equal(t0))
	assert.Equal(t, 3600, meta.TTL)
	assert.False(t, meta.Deactivated)
}

func TestResolveRejectsMisspelledMembers(t *testing.T) {
	f := newFixture(t, "k1")
	id, log := f.create(t, CreateParams{})

	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{name: "parameter case", mutate: func(m map[string]any) {
			params := m["parameters"].(map[string]any)
			params["UpdateKeys"] = params["updateKeys"]
		}},
		{name: "entry member case", mutate: func(m map[string]any) { m["VersionId"] = m["versionId"] }},
		{name: "unknown parameter", mutate: func(m map[string]any) { m["parameters"].(map[string]any)["prerotation"] = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(jsonl(t, log)), &m))
			tt.mutate(m)
			line, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = ParseLog(line)
			require.Error(t, err)

			fetch := serve(t, map[string][]byte{"https://example.com/.well-known/did.jsonl": line})
			_, err = New().Resolve(context.Background(), id.URL(), &resolver.Options{Fetcher: fetch})
			assert.ErrorIs(t, err, resolver.ErrLogIntegrity)
		})
	}
}

func TestReplayHashChain(t *testing.T) {
	f := newFixture(t, "k1")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{})

	state := proof.JSONMap{
		"@context":    []any{document.ContextDIDv1},
		"id":          id.String(),
		"alsoKnownAs": []any{"https://example.com/alice"},
	}
	log, err := Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1", State: state, VersionTime: t0.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, log, 2)

	corrupted := mutate(t, log, 1, func(m map[string]any) {
		m["versionId"] = flip(m["versionId"].(string))
	})
	_, err = Replay(id, corrupted, nil)
	assert.ErrorIs(t, err, resolver.ErrLogIntegrity)

	restored := mutate(t, corrupted, 1, func(m map[string]any) {
		m["versionId"] = log[1].VersionID
	})
	versions, err := Replay(id, restored, nil)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, []any{"https://example.com/alice"}, versions[1].State["alsoKnownAs"])

	fetch := serve(t, map[string][]byte{"https://example.com/.well-known/did.jsonl": jsonl(t, restored)})
	res, err := New().Resolve(ctx, id.URL(), &resolver.Options{Fetcher: fetch})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/alice"}, res.Document.AlsoKnownAs())
	assert.True(t, res.DocumentMetadata.Created.Equal(t0))
	assert.True(t, res.DocumentMetadata.Updated.Equal(t0.Add(time.Hour)))
}

func TestReplayRejectsTampering(t *testing.T) {
	f := newFixture(t, "k1")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{})
	log, err := Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1", VersionTime: t0.Add(time.Minute)})
	require.NoError(t, err)

	tests := []struct {
		name    string
		entry   int
		mutate  func(m map[string]any)
		wantErr error
	}{
		{
			name:  "state changed",
			entry: 0,
			mutate: func(m map[string]any) {
				m["state"].(map[string]any)["alsoKnownAs"] = []any{"https://evil.example"}
			},
			wantErr: resolver.ErrLogIntegrity,
		},
		{
			name:  "signature flipped",
			entry: 1,
			mutate: func(m map[string]any) {
				p := m["proof"].([]any)[0].(map[string]any)
				p["proofValue"] = flip(p["proofValue"].(string))
			},
			wantErr: resolver.ErrLogIntegrity,
		},
		{
			name:  "version number skipped",
			entry: 1,
			mutate: func(m map[string]any) {
				m["versionId"] = "3" + strings.TrimPrefix(m["versionId"].(string), "2")
			},
			wantErr: resolver.ErrLogIntegrity,
		},
		{
			name:  "scid rewritten",
			entry: 0,
			mutate: func(m map[string]any) {
				m["parameters"].(map[string]any)["scid"] = "QmfGEUAcMpzo25kF2Rhn8L5FAXysfGnkzjwdKoNPi615XQ"
			},
			wantErr: resolver.ErrLogIntegrity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(id, mutate(t, log, tt.entry, tt.mutate), nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReplayAuthorization(t *testing.T) {
	f := newFixture(t, "k1", "intruder")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{})

	_, err := Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "intruder", VersionTime: t0})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// an entry signed outside Update is still caught by replay
	entry, err := proof.ToJSONMap(Entry{
		VersionID:   log[0].VersionID,
		VersionTime: t0.Add(time.Minute).Format(time.RFC3339),
		State:       log[0].State,
	})
	require.NoError(t, err)
	forged, err := seal(ctx, f.ks, "intruder", f.keys["intruder"], entry, log[0].VersionID, 2, t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = Replay(id, append(log, forged), nil)
	assert.ErrorIs(t, err, resolver.ErrLogIntegrity)
}

func TestReplayRejectsEarlierVersionTime(t *testing.T) {
	f := newFixture(t, "k1")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{})

	entry, err := proof.ToJSONMap(Entry{
		VersionID:   log[0].VersionID,
		VersionTime: t0.Add(-time.Minute).Format(time.RFC3339),
		State:       log[0].State,
	})
	require.NoError(t, err)
	early, err := seal(ctx, f.ks, "k1", f.keys["k1"], entry, log[0].VersionID, 2, t0.Add(-time.Minute))
	require.NoError(t, err)

	_, err = Replay(id, append(log, early), nil)
	assert.ErrorIs(t, err, resolver.ErrLogIntegrity)

	// equal timestamps are allowed
	log, err = Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1", VersionTime: t0})
	require.NoError(t, err)
	_, err = Replay(id, log, nil)
	assert.NoError(t, err)
}

func TestReplayStateIDMismatch(t *testing.T) {
	f := newFixture(t, "k1")
	id, log := f.create(t, CreateParams{State: func(string) proof.JSONMap {
		return proof.JSONMap{"id": "did:web:example.com"}
	}})

	_, err := Replay(id, log, nil)
	assert.ErrorIs(t, err, resolver.ErrDIDMismatch)
}

func TestPreRotation(t *testing.T) {
	f := newFixture(t, "k1", "k2", "k3")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{NextKeyHashes: []string{f.hash(t, "k2")}})

	_, err := Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1", VersionTime: t0})
	assert.ErrorIs(t, err, ErrUnauthorized, "old key cannot sign under pre-rotation")

	_, err = Update(ctx, f.ks, id, log, UpdateParams{
		SigningKey: "k3",
		Parameters: Parameters{UpdateKeys: []string{f.keys["k3"]}},
	})
	assert.ErrorIs(t, err, ErrUnauthorized, "uncommitted key")

	log, err = Update(ctx, f.ks, id, log, UpdateParams{
		SigningKey:  "k2",
		Parameters:  Parameters{UpdateKeys: []string{f.keys["k2"]}, NextKeyHashes: []string{f.hash(t, "k3")}},
		VersionTime: t0.Add(time.Minute),
	})
	require.NoError(t, err)

	versions, err := Replay(id, log, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{f.keys["k2"]}, versions[1].Parameters.UpdateKeys)
	assert.Equal(t, []string{f.hash(t, "k3")}, versions[1].Parameters.NextKeyHashes)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("without pre-rotation", func(t *testing.T) {
		f := newFixture(t, "k1")
		id, log := f.create(t, CreateParams{})
		log, err := Deactivate(ctx, f.ks, id, log, "k1", t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Len(t, log, 2)

		_, err = Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1"})
		assert.ErrorIs(t, err, ErrDeactivated)
	})

	t.Run("pre-rotation after create", func(t *testing.T) {
		f := newFixture(t, "k1", "k2")
		id, log := f.create(t, CreateParams{NextKeyHashes: []string{f.hash(t, "k2")}})
		log, err := Deactivate(ctx, f.ks, id, log, "k2", t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Len(t, log, 3)

		fetch := serve(t, map[string][]byte{"https://example.com/.well-known/did.jsonl": jsonl(t, log)})
		res, err := New().Resolve(ctx, id.URL(), &resolver.Options{Fetcher: fetch})
		require.NoError(t, err)
		assert.True(t, res.DocumentMetadata.Deactivated)
	})

	t.Run("pre-rotation after update", func(t *testing.T) {
		f := newFixture(t, "k1", "k2", "k3")
		id, log := f.create(t, CreateParams{NextKeyHashes: []string{f.hash(t, "k2")}})
		log, err := Update(ctx, f.ks, id, log, UpdateParams{
			SigningKey:  "k2",
			Parameters:  Parameters{UpdateKeys: []string{f.keys["k2"]}, NextKeyHashes: []string{f.hash(t, "k3")}},
			VersionTime: t0.Add(time.Minute),
		})
		require.NoError(t, err)

		log, err = Deactivate(ctx, f.ks, id, log, "k3", t0.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Len(t, log, 4)

		versions, err := Replay(id, log, nil)
		require.NoError(t, err)
		assert.True(t, versions[3].Parameters.Deactivated)
		assert.Empty(t, versions[3].Parameters.UpdateKeys)
	})
}

func TestWitnesses(t *testing.T) {
	f := newFixture(t, "k1", "w1", "w2")
	ctx := context.Background()
	rule := &WitnessRule{
		Threshold: 2,
		Witnesses: []Witness{{ID: "did:key:" + f.keys["w1"]}, {ID: "did:key:" + f.keys["w2"]}},
	}
	id, log := f.create(t, CreateParams{Witness: rule})
	log, err := Update(ctx, f.ks, id, log, UpdateParams{SigningKey: "k1", VersionTime: t0.Add(time.Minute)})
	require.NoError(t, err)

	witness := func(keyID, versionID string) proof.Proof {
		p, err := WitnessProof(ctx, f.ks, keyID, versionID, t0)
		require.NoError(t, err)
		return p
	}
	resolve := func(file WitnessFile) error {
		files := map[string][]byte{"https://example.com/.well-known/did.jsonl": jsonl(t, log)}
		if file != nil {
			data, err := json.Marshal(file)
			require.NoError(t, err)
			files["https://example.com/.well-known/did-witness.json"] = data
		}
		_, err := New().Resolve(ctx, id.URL(), &resolver.Options{Fetcher: serve(t, files)})
		return err
	}

	tests := []struct {
		name    string
		file    WitnessFile
		wantErr bool
	}{
		{name: "no witness file", wantErr: true},
		{
			name:    "below threshold",
			file:    WitnessFile{{VersionID: log[1].VersionID, Proof: []proof.Proof{witness("w1", log[1].VersionID)}}},
			wantErr: true,
		},
		{
			name:    "latest version only partly approved",
			file:    WitnessFile{{VersionID: log[0].VersionID, Proof: []proof.Proof{witness("w1", log[0].VersionID), witness("w2", log[0].VersionID)}}},
			wantErr: true,
		},
		{
			name:    "signature over another version",
			file:    WitnessFile{{VersionID: log[1].VersionID, Proof: []proof.Proof{witness("w1", log[1].VersionID), witness("w2", log[0].VersionID)}}},
			wantErr: true,
		},
		{
			name: "latest approval covers earlier versions",
			file: WitnessFile{{VersionID: log[1].VersionID, Proof: []proof.Proof{witness("w1", log[1].VersionID), witness("w2", log[1].VersionID)}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := resolve(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, resolver.ErrLogIntegrity)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVersionQuery(t *testing.T) {
	f := newFixture(t, "k1")
	ctx := context.Background()
	id, log := f.create(t, CreateParams{})
	log, err := Update(ctx, f.ks, id, log, UpdateParams{
		SigningKey:  "k1",
		State:       proof.JSONMap{"id": id.String(), "alsoKnownAs": []any{"https://example.com/v2"}},
		VersionTime: t0.Add(time.Hour),
	})
	require.NoError(t, err)

	fetch := serve(t, map[string][]byte{"https://example.com/.well-known/did.jsonl": jsonl(t, log)})
	reg, err := resolver.NewRegistry([]resolver.Method{New()}, resolver.WithFetcher(fetch))
	require.NoError(t, err)

	tests := []struct {
		name    string
		query   string
		version string
		wantErr error
	}{
		{name: "latest", version: log[1].VersionID},
		{name: "by number", query: "?versionNumber=1", version: log[0].VersionID},
		{name: "by id", query: "?versionId=" + log[1].VersionID, version: log[1].VersionID},
		{name: "by time", query: "?versionTime=2025-01-01T12:30:00Z", version: log[0].VersionID},
		{name: "time before creation", query: "?versionTime=2024-01-01T00:00:00Z", wantErr: resolver.ErrNotFound},
		{name: "unknown number", query: "?versionNumber=7", wantErr: resolver.ErrNotFound},
		{name: "bad number", query: "?versionNumber=x", wantErr: resolver.ErrInvalidDID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.Resolve(ctx, id.String()+tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, res.DocumentMetadata.VersionID)
		})
	}
}

func TestResolvePath(t *testing.T) {
	f := newFixture(t, "k1")
	id, _ := f.create(t, CreateParams{Location: "example.com:dids:alice"})

	fetch := serve(t, map[string][]byte{"https://example.com/dids/alice/whois.vp": []byte(`{}`)})
	u, err := did.ParseURL(id.String() + "/whois.vp")
	require.NoError(t, err)

	res, err := New().ResolvePath(context.Background(), u, &resolver.Options{Fetcher: fetch})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), res.Content)
}
