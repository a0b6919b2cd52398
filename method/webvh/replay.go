package webvh

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
	"github.com/pilacorp/go-did-resolver/internal/logger"
	"github.com/pilacorp/go-did-resolver/method/key"
	"github.com/pilacorp/go-did-resolver/proof"
	"github.com/pilacorp/go-did-resolver/resolver"
)

// MethodPrefix is the prefix of the parameters.method value.
const MethodPrefix = "did:webvh:"

// Version is a verified state of the DID.
type Version struct {
	Number     int
	ID         string
	Time       time.Time
	Parameters Parameters
	State      proof.JSONMap
}

// WitnessSource loads did-witness.json. It is only called when some entry
// requires witnessing.
type WitnessSource func() (WitnessFile, error)

type replayState struct {
	id      did.DID
	params  Parameters
	prevID  string
	last    time.Time
	version int
}

// Replay verifies log for id and returns every version in order. Entries are
// checked strictly in sequence and the first failure aborts.
func Replay(id did.DID, log Log, witnesses WitnessSource) ([]Version, error) {
	versions, err := replayEntries(id, log)
	if err != nil {
		return nil, err
	}
	if err := checkWitnesses(id, versions, witnesses); err != nil {
		return nil, err
	}
	return versions, nil
}

func replayEntries(id did.DID, log Log) ([]Version, error) {
	scid, _, err := splitMSID(id.ID)
	if err != nil {
		return nil, resolver.NewError(resolver.KindInvalidDID, id.String(), err, "")
	}
	if len(log) == 0 {
		return nil, integrity(id, nil, "log is empty")
	}

	st := &replayState{id: id, prevID: scid}
	versions := make([]Version, 0, len(log))
	for i, e := range log {
		v, err := st.apply(i, e, scid)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (st *replayState) apply(i int, e Entry, scid string) (Version, error) {
	id := st.id
	if st.params.Deactivated {
		return Version{}, integrity(id, nil, "entry %d follows deactivation", i+1)
	}

	n, hash, err := e.VersionNumber()
	if err != nil {
		return Version{}, integrity(id, err, "entry %d", i+1)
	}
	if n != st.version+1 {
		return Version{}, integrity(id, nil, "entry %d has version number %d", i+1, n)
	}

	m, err := e.JSONMap()
	if err != nil {
		return Version{}, integrity(id, err, "entry %d", i+1)
	}
	want, err := entryHash(m, st.prevID)
	if err != nil {
		return Version{}, integrity(id, err, "entry %d hash", i+1)
	}
	if want != hash {
		return Version{}, integrity(id, nil, "entry %d hash mismatch", i+1)
	}

	if i == 0 {
		if !strings.HasPrefix(e.Parameters.Method, MethodPrefix) {
			return Version{}, integrity(id, nil, "first entry must declare method")
		}
		if e.Parameters.SCID != scid {
			return Version{}, integrity(id, nil, "first entry declares scid %q", e.Parameters.SCID)
		}
		ok, err := verifySCID(m, scid)
		if err != nil {
			return Version{}, integrity(id, err, "scid")
		}
		if !ok {
			return Version{}, integrity(id, nil, "scid does not match first entry")
		}
		if len(e.Parameters.UpdateKeys) == 0 {
			return Version{}, integrity(id, nil, "first entry has no updateKeys")
		}
	} else if e.Parameters.Portable && !st.params.Portable {
		return Version{}, integrity(id, nil, "entry %d enables portability after creation", i+1)
	}

	t, err := e.Time()
	if err != nil {
		return Version{}, integrity(id, err, "entry %d versionTime", i+1)
	}
	if t.Before(st.last) {
		return Version{}, integrity(id, nil, "entry %d versionTime precedes entry %d", i+1, i)
	}

	if stateID, _ := e.State["id"].(string); stateID != id.String() {
		return Version{}, resolver.NewError(resolver.KindDIDMismatch, id.String(), nil, "entry %d state id %q", i+1, stateID)
	}

	authorized, err := authorizedKeys(i, st.params, e.Parameters)
	if err != nil {
		return Version{}, integrity(id, err, "entry %d", i+1)
	}
	if err := verifyEntryProofs(m, authorized); err != nil {
		return Version{}, integrity(id, err, "entry %d", i+1)
	}

	logger.ForDID("webvh", id).Debug("verified log entry", "versionId", e.VersionID)

	st.params = st.params.merge(e.Parameters)
	st.prevID = e.VersionID
	st.last = t
	st.version = n

	return Version{
		Number:     n,
		ID:         e.VersionID,
		Time:       t,
		Parameters: st.params,
		State:      e.State,
	}, nil
}

// authorizedKeys returns the update keys that may sign an entry. The first
// entry signs with its own keys. Under pre-rotation the entry must reveal
// keys committed to by the previous nextKeyHashes and sign with one of them.
func authorizedKeys(i int, active, delta Parameters) ([]string, error) {
	if i == 0 {
		return delta.UpdateKeys, nil
	}
	if !active.preRotation() {
		return active.UpdateKeys, nil
	}
	if len(delta.UpdateKeys) == 0 {
		return nil, fmt.Errorf("pre-rotation requires new updateKeys")
	}
	for _, k := range delta.UpdateKeys {
		h, err := KeyHash(k)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(active.NextKeyHashes, h) {
			return nil, fmt.Errorf("update key %s was not pre-committed", k)
		}
	}
	return delta.UpdateKeys, nil
}

// verifyEntryProofs requires every proof to verify and to come from an
// authorized update key.
func verifyEntryProofs(entry proof.JSONMap, authorized []string) error {
	proofs, err := entry.Proofs()
	if err != nil {
		return err
	}
	if len(proofs) == 0 {
		return fmt.Errorf("entry has no proof")
	}
	for _, p := range proofs {
		mb, doc, err := keyDocument(p.VerificationMethod)
		if err != nil {
			return err
		}
		if !slices.Contains(authorized, mb) {
			return fmt.Errorf("%s is not an authorized update key", mb)
		}
		if err := proof.Verify(doc, entry, p); err != nil {
			return err
		}
	}
	return nil
}

// keyDocument resolves the did:key document a proof's verification method
// points into and returns the multibase key.
func keyDocument(vm string) (string, *document.Document, error) {
	u, err := did.ParseURL(vm)
	if err != nil {
		return "", nil, fmt.Errorf("verificationMethod: %w", err)
	}
	if u.Method != key.MethodName {
		return "", nil, fmt.Errorf("verificationMethod %s is not a did:key", vm)
	}
	doc, err := key.New().Document(u.DID)
	if err != nil {
		return "", nil, err
	}
	return u.DID.ID, doc, nil
}

// checkWitnesses enforces witness rules. A witness proof over version N
// approves every version up to N.
func checkWitnesses(id did.DID, versions []Version, source WitnessSource) error {
	needed := false
	for _, v := range versions {
		if v.Parameters.witnessed() {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	if source == nil {
		return integrity(id, nil, "log requires witness proofs")
	}
	file, err := source()
	if err != nil {
		var re *resolver.Error
		if errors.As(err, &re) && re.Kind != resolver.KindNotFound {
			return err
		}
		return integrity(id, err, "load witness proofs")
	}

	numbers := make(map[string]int, len(versions))
	for _, v := range versions {
		numbers[v.ID] = v.Number
	}

	// highest version number approved by each witness DID
	approved := make(map[string]int)
	for _, we := range file {
		n, ok := numbers[we.VersionID]
		if !ok {
			continue
		}
		payload := proof.JSONMap{"versionId": we.VersionID}
		for _, p := range we.Proof {
			_, doc, err := keyDocument(p.VerificationMethod)
			if err != nil {
				continue
			}
			if proof.Verify(doc, payload, p) != nil {
				continue
			}
			w := doc.ID().String()
			if n > approved[w] {
				approved[w] = n
			}
		}
	}

	for _, v := range versions {
		if !v.Parameters.witnessed() {
			continue
		}
		weight := 0
		for _, w := range v.Parameters.Witness.Witnesses {
			if approved[w.ID] >= v.Number {
				weight += w.weight()
			}
		}
		if weight < v.Parameters.Witness.Threshold {
			return integrity(id, nil, "version %s has witness weight %d, need %d", v.ID, weight, v.Parameters.Witness.Threshold)
		}
	}
	return nil
}

func integrity(id did.DID, err error, format string, args ...any) error {
	return resolver.NewError(resolver.KindLogIntegrity, id.String(), err, format, args...)
}
