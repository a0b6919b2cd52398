package webvh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pilacorp/go-did-resolver/proof"
	"github.com/pilacorp/go-did-resolver/schema"
)

// Parameters configure a DID log. In a log entry only the members that
// change are present; Replay carries the rest forward.
type Parameters struct {
	Method        string       `json:"method,omitempty"`
	SCID          string       `json:"scid,omitempty"`
	UpdateKeys    []string     `json:"updateKeys,omitzero"`
	NextKeyHashes []string     `json:"nextKeyHashes,omitzero"`
	Portable      bool         `json:"portable,omitempty"`
	Deactivated   bool         `json:"deactivated,omitempty"`
	TTL           int          `json:"ttl,omitempty"`
	Witness       *WitnessRule `json:"witness,omitempty"`
}

// WitnessRule requires approval by witnesses whose weights reach Threshold.
// A zero threshold disables witnessing.
type WitnessRule struct {
	Threshold int       `json:"threshold"`
	Witnesses []Witness `json:"witnesses"`
}

// Witness is a did:key witness. Weight defaults to 1.
type Witness struct {
	ID     string `json:"id"`
	Weight int    `json:"weight,omitempty"`
}

func (w Witness) weight() int {
	if w.Weight <= 0 {
		return 1
	}
	return w.Weight
}

// preRotation reports whether the next update must reveal pre-committed keys.
func (p Parameters) preRotation() bool { return len(p.NextKeyHashes) > 0 }

func (p Parameters) witnessed() bool { return p.Witness != nil && p.Witness.Threshold > 0 }

// merge applies the members present in delta.
func (p Parameters) merge(delta Parameters) Parameters {
	if delta.Method != "" {
		p.Method = delta.Method
	}
	if delta.SCID != "" {
		p.SCID = delta.SCID
	}
	if delta.UpdateKeys != nil {
		p.UpdateKeys = delta.UpdateKeys
	}
	if delta.NextKeyHashes != nil {
		p.NextKeyHashes = delta.NextKeyHashes
	}
	if delta.Portable {
		p.Portable = true
	}
	if delta.Deactivated {
		p.Deactivated = true
	}
	if delta.TTL != 0 {
		p.TTL = delta.TTL
	}
	if delta.Witness != nil {
		p.Witness = delta.Witness
	}
	return p
}

// Entry is one line of a did.jsonl log.
type Entry struct {
	VersionID   string        `json:"versionId"`
	VersionTime string        `json:"versionTime"`
	Parameters  Parameters    `json:"parameters"`
	State       proof.JSONMap `json:"state"`
	Proof       []proof.Proof `json:"proof,omitempty"`

	// raw is the entry as read from the log. Hashes and signatures are
	// computed over it. The log entry schema rejects members whose names do
	// not match exactly, so raw and the typed fields agree.
	raw proof.JSONMap
}

// VersionNumber splits the "<n>-<hash>" version id.
func (e Entry) VersionNumber() (int, string, error) {
	return splitVersionID(e.VersionID)
}

func splitVersionID(v string) (int, string, error) {
	num, hash, ok := strings.Cut(v, "-")
	if !ok || hash == "" {
		return 0, "", fmt.Errorf("versionId %q is not <number>-<hash>", v)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("versionId %q has an invalid number", v)
	}
	return n, hash, nil
}

// Time parses versionTime.
func (e Entry) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, e.VersionTime)
}

// JSONMap returns the entry as a JSON object.
func (e Entry) JSONMap() (proof.JSONMap, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return proof.ToJSONMap(e)
}

// Log is a parsed did.jsonl file in append order.
type Log []Entry

// ParseLog decodes a JSON Lines log. Every line is checked against the log
// entry schema.
func ParseLog(data []byte) (Log, error) {
	var log Log
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if err := schema.ValidateLogEntry(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := json.Unmarshal(line, &e.raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		log = append(log, e)
	}
	if len(log) == 0 {
		return nil, fmt.Errorf("log is empty")
	}
	return log, nil
}

// MarshalJSONL encodes the log as JSON Lines.
func (l Log) MarshalJSONL() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range l {
		m, err := e.JSONMap()
		if err != nil {
			return nil, err
		}
		line, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WitnessEntry carries witness proofs approving VersionID and every earlier
// version.
type WitnessEntry struct {
	VersionID string        `json:"versionId"`
	Proof     []proof.Proof `json:"proof"`
}

// WitnessFile is the content of did-witness.json.
type WitnessFile []WitnessEntry

// ParseWitnessFile decodes did-witness.json.
func ParseWitnessFile(data []byte) (WitnessFile, error) {
	var raw []struct {
		VersionID string `json:"versionId"`
		Proof     []any  `json:"proof"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(WitnessFile, 0, len(raw))
	for _, r := range raw {
		we := WitnessEntry{VersionID: r.VersionID}
		for _, item := range r.Proof {
			p, err := proof.ParseProof(item)
			if err != nil {
				return nil, err
			}
			we.Proof = append(we.Proof, p)
		}
		out = append(out, we)
	}
	return out, nil
}
