package webvh

import (
	"bytes"
	"encoding/json"

	"github.com/multiformats/go-multihash"

	"github.com/pilacorp/go-did-resolver/jsoncanonicalizer"
	"github.com/pilacorp/go-did-resolver/proof"
)

// Placeholder stands in for the SCID while it is being computed.
const Placeholder = "{SCID}"

// hashJSON returns base58btc(multihash(sha2-256(JCS(data)))).
func hashJSON(data []byte) (string, error) {
	canonical, err := jsoncanonicalizer.Transform(data)
	if err != nil {
		return "", err
	}
	return hashBytes(canonical)
}

func hashBytes(b []byte) (string, error) {
	mh, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return mh.B58String(), nil
}

// entryHash hashes entry without its proof and with versionId replaced by
// the predecessor's version id. This binds each entry to the one before it.
func entryHash(entry proof.JSONMap, previousVersionID string) (string, error) {
	m := entry.WithoutProof()
	m["versionId"] = previousVersionID
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return hashJSON(data)
}

// computeSCID hashes a first entry whose SCID occurrences are already
// replaced by Placeholder.
func computeSCID(preliminary proof.JSONMap) (string, error) {
	m := preliminary.WithoutProof()
	m["versionId"] = Placeholder
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return hashJSON(data)
}

// verifySCID recomputes the SCID of the first entry.
func verifySCID(first proof.JSONMap, scid string) (bool, error) {
	m := first.WithoutProof()
	m["versionId"] = scid
	data, err := json.Marshal(m)
	if err != nil {
		return false, err
	}
	data = bytes.ReplaceAll(data, []byte(scid), []byte(Placeholder))
	got, err := hashJSON(data)
	if err != nil {
		return false, err
	}
	return got == scid, nil
}

// KeyHash returns the pre-rotation commitment for a multibase update key.
func KeyHash(multibaseKey string) (string, error) {
	return hashBytes([]byte(multibaseKey))
}
