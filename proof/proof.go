// Package proof creates and verifies Data Integrity proofs over JSON
// payloads.
//
// The signed bytes are SHA-256(canon(proof options)) || SHA-256(canon(payload
// without proof)), where canon is JCS or RDF dataset canonicalization
// depending on the cryptosuite.
package proof

import (
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-did-resolver/jsoncanonicalizer"
)

// TypeDataIntegrityProof is the only proof type handled by this package.
const TypeDataIntegrityProof = "DataIntegrityProof"

// Proof is a Data Integrity proof.
type Proof struct {
	Context            any    `json:"@context,omitempty"`
	ID                 string `json:"id,omitempty"`
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	Created            string `json:"created,omitempty"`
	Expires            string `json:"expires,omitempty"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	Challenge          string `json:"challenge,omitempty"`
	Domain             string `json:"domain,omitempty"`
	Nonce              string `json:"nonce,omitempty"`
	ProofValue         string `json:"proofValue,omitempty"`

	// raw keeps every member of a parsed proof so that the signed options
	// include members this struct does not model.
	raw JSONMap
}

// ParseProof decodes a proof from its JSON object form.
func ParseProof(v any) (Proof, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Proof{}, wrap(KindMalformedProof, err, "encode")
	}
	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return Proof{}, wrap(KindMalformedProof, err, "decode")
	}
	var raw JSONMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return Proof{}, wrap(KindMalformedProof, err, "decode")
	}
	p.raw = raw
	return p, nil
}

// options returns the proof without proofValue, as signed.
func (p Proof) options() (JSONMap, error) {
	if p.raw != nil {
		out := make(JSONMap, len(p.raw))
		for k, v := range p.raw {
			if k != "proofValue" {
				out[k] = v
			}
		}
		return out, nil
	}
	p.ProofValue = ""
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONMap is a JSON object payload.
type JSONMap map[string]any

// ToJSONMap converts any JSON-encodable value into a JSONMap.
func ToJSONMap(v any) (JSONMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var m JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return m, nil
}

// WithoutProof returns a shallow copy of m without the proof member.
func (m JSONMap) WithoutProof() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		if k != "proof" {
			out[k] = v
		}
	}
	return out
}

// Proofs returns the proofs attached to m. The proof member may be a single
// object or an array.
func (m JSONMap) Proofs() ([]Proof, error) {
	raw, ok := m["proof"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}
	proofs := make([]Proof, 0, len(list))
	for _, item := range list {
		p, err := ParseProof(item)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, nil
}

// AddProof attaches p to m, turning an existing single proof into an array.
func (m JSONMap) AddProof(p Proof) error {
	pm, err := ToJSONMap(p)
	if err != nil {
		return err
	}
	switch existing := m["proof"].(type) {
	case nil:
		m["proof"] = []any{map[string]any(pm)}
	case []any:
		m["proof"] = append(existing, map[string]any(pm))
	default:
		m["proof"] = []any{existing, map[string]any(pm)}
	}
	return nil
}

// Canonicalize returns the JCS canonical bytes of v.
func Canonicalize(v any) ([]byte, error) {
	return jsoncanonicalizer.Marshal(v)
}
