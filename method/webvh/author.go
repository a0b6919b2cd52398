package webvh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/keyservice"
	"github.com/pilacorp/go-did-resolver/method/key"
	"github.com/pilacorp/go-did-resolver/proof"
)

// DefaultMethod is written to parameters.method of new logs.
const DefaultMethod = MethodPrefix + "1.0"

var (
	ErrUnauthorized = errors.New("webvh: signing key is not authorized for this entry")
	ErrDeactivated  = errors.New("webvh: DID is deactivated")
)

// CreateParams describe a new DID log.
type CreateParams struct {
	// Location is the "<domain>[:<path>...]" part of the DID, in did:web form.
	Location string
	// SigningKey is the key service id that signs the first entry.
	SigningKey string
	// UpdateKeys are multibase public keys. Defaults to the signing key.
	UpdateKeys    []string
	NextKeyHashes []string
	Portable      bool
	TTL           int
	Witness       *WitnessRule
	// State returns the initial document. id contains Placeholder where the
	// SCID goes. A nil State produces a document with only an id.
	State       func(id string) proof.JSONMap
	VersionTime time.Time
}

// Create builds and signs the first entry of a new log.
func Create(ctx context.Context, ks keyservice.KeyService, p CreateParams) (did.DID, Log, error) {
	mb, err := signerKey(ctx, ks, p.SigningKey)
	if err != nil {
		return did.DID{}, nil, err
	}
	updateKeys := p.UpdateKeys
	if len(updateKeys) == 0 {
		updateKeys = []string{mb}
	}
	if !slices.Contains(updateKeys, mb) {
		return did.DID{}, nil, ErrUnauthorized
	}

	placeholderID := fmt.Sprintf("did:%s:%s:%s", MethodName, Placeholder, p.Location)
	state := proof.JSONMap{"@context": []any{document.ContextDIDv1}, "id": placeholderID}
	if p.State != nil {
		state = p.State(placeholderID)
	}

	t := versionTime(p.VersionTime, time.Time{})
	preliminary, err := proof.ToJSONMap(Entry{
		VersionID:   Placeholder,
		VersionTime: t.Format(time.RFC3339),
		Parameters: Parameters{
			Method:        DefaultMethod,
			SCID:          Placeholder,
			UpdateKeys:    updateKeys,
			NextKeyHashes: p.NextKeyHashes,
			Portable:      p.Portable,
			TTL:           p.TTL,
			Witness:       p.Witness,
		},
		State: state,
	})
	if err != nil {
		return did.DID{}, nil, err
	}

	scid, err := computeSCID(preliminary)
	if err != nil {
		return did.DID{}, nil, err
	}
	data, err := json.Marshal(preliminary)
	if err != nil {
		return did.DID{}, nil, err
	}
	data = bytes.ReplaceAll(data, []byte(Placeholder), []byte(scid))
	var entry proof.JSONMap
	if err := json.Unmarshal(data, &entry); err != nil {
		return did.DID{}, nil, err
	}

	id, err := did.Parse(fmt.Sprintf("did:%s:%s:%s", MethodName, scid, p.Location))
	if err != nil {
		return did.DID{}, nil, err
	}

	e, err := seal(ctx, ks, p.SigningKey, mb, entry, scid, 1, t)
	if err != nil {
		return did.DID{}, nil, err
	}
	return id, Log{e}, nil
}

// UpdateParams describe a new version.
type UpdateParams struct {
	SigningKey string
	// State replaces the document. Nil keeps the current one.
	State proof.JSONMap
	// Parameters holds only the members that change.
	Parameters  Parameters
	VersionTime time.Time
}

// Update verifies log and appends a signed entry.
func Update(ctx context.Context, ks keyservice.KeyService, id did.DID, log Log, p UpdateParams) (Log, error) {
	versions, err := replayEntries(id, log)
	if err != nil {
		return nil, err
	}
	last := versions[len(versions)-1]
	if last.Parameters.Deactivated {
		return nil, ErrDeactivated
	}

	mb, err := signerKey(ctx, ks, p.SigningKey)
	if err != nil {
		return nil, err
	}
	authorized, err := authorizedKeys(len(log), last.Parameters, p.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !slices.Contains(authorized, mb) {
		return nil, ErrUnauthorized
	}

	state := p.State
	if state == nil {
		state = last.State
	}
	t := versionTime(p.VersionTime, last.Time)
	entry, err := proof.ToJSONMap(Entry{
		VersionID:   last.ID,
		VersionTime: t.Format(time.RFC3339),
		Parameters:  p.Parameters,
		State:       state,
	})
	if err != nil {
		return nil, err
	}

	e, err := seal(ctx, ks, p.SigningKey, mb, entry, last.ID, last.Number+1, t)
	if err != nil {
		return nil, err
	}
	return append(slices.Clone(log), e), nil
}

// Deactivate appends a deactivation entry signed by signingKey. When
// pre-rotation is active, signingKey must be a committed next key and an
// entry revealing it and clearing nextKeyHashes is appended first.
func Deactivate(ctx context.Context, ks keyservice.KeyService, id did.DID, log Log, signingKey string, at time.Time) (Log, error) {
	versions, err := replayEntries(id, log)
	if err != nil {
		return nil, err
	}
	last := versions[len(versions)-1]

	if last.Parameters.preRotation() {
		mb, err := signerKey(ctx, ks, signingKey)
		if err != nil {
			return nil, err
		}
		log, err = Update(ctx, ks, id, log, UpdateParams{
			SigningKey:  signingKey,
			Parameters:  Parameters{UpdateKeys: []string{mb}, NextKeyHashes: []string{}},
			VersionTime: at,
		})
		if err != nil {
			return nil, err
		}
	}

	return Update(ctx, ks, id, log, UpdateParams{
		SigningKey:  signingKey,
		Parameters:  Parameters{Deactivated: true, UpdateKeys: []string{}},
		VersionTime: at,
	})
}

// WitnessProof signs the approval of versionID by a witness key.
func WitnessProof(ctx context.Context, ks keyservice.KeyService, keyID, versionID string, at time.Time) (proof.Proof, error) {
	mb, err := signerKey(ctx, ks, keyID)
	if err != nil {
		return proof.Proof{}, err
	}
	return proof.Create(ctx, ks, keyID, key.MethodURL(mb), proof.JSONMap{"versionId": versionID},
		proof.WithCreated(versionTime(at, time.Time{})))
}

// seal sets the version id of entry and signs it.
func seal(ctx context.Context, ks keyservice.KeyService, keyID, mb string, entry proof.JSONMap, previousVersionID string, number int, t time.Time) (Entry, error) {
	hash, err := entryHash(entry, previousVersionID)
	if err != nil {
		return Entry{}, err
	}
	entry["versionId"] = fmt.Sprintf("%d-%s", number, hash)

	p, err := proof.Create(ctx, ks, keyID, key.MethodURL(mb), entry, proof.WithCreated(t))
	if err != nil {
		return Entry{}, err
	}
	if err := entry.AddProof(p); err != nil {
		return Entry{}, err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, err
	}
	e.raw = entry
	return e, nil
}

func signerKey(ctx context.Context, ks keyservice.KeyService, keyID string) (string, error) {
	pub, err := ks.PublicKey(ctx, keyID)
	if err != nil {
		return "", err
	}
	return pub.Multibase(), nil
}

// versionTime defaults to now and never goes back before previous.
func versionTime(t, previous time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC().Truncate(time.Second)
	if t.Before(previous) {
		return previous
	}
	return t
}
