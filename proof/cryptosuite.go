package proof

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/piprate/json-gold/ld"

	"github.com/pilacorp/go-did-resolver/multikey"
)

// Cryptosuite names.
const (
	EdDSAJCS2022  = "eddsa-jcs-2022"
	ECDSAJCS2019  = "ecdsa-jcs-2019"
	EdDSARDFC2022 = "eddsa-rdfc-2022"
	ECDSARDFC2019 = "ecdsa-rdfc-2019"
)

const (
	nquadsFormat     = "application/n-quads"
	defaultAlgorithm = ld.AlgorithmURDNA2015
)

type canonicalizer func(doc JSONMap, loader ld.DocumentLoader) ([]byte, error)

type suite struct {
	name      string
	canon     canonicalizer
	keyTypes  []multikey.KeyType
	needsLDCx bool
}

var suites = map[string]suite{
	EdDSAJCS2022: {
		name:     EdDSAJCS2022,
		canon:    canonicalizeJCS,
		keyTypes: []multikey.KeyType{multikey.Ed25519Public},
	},
	ECDSAJCS2019: {
		name:     ECDSAJCS2019,
		canon:    canonicalizeJCS,
		keyTypes: []multikey.KeyType{multikey.P256Public, multikey.Secp256k1Public},
	},
	EdDSARDFC2022: {
		name:      EdDSARDFC2022,
		canon:     canonicalizeRDF,
		keyTypes:  []multikey.KeyType{multikey.Ed25519Public},
		needsLDCx: true,
	},
	ECDSARDFC2019: {
		name:      ECDSARDFC2019,
		canon:     canonicalizeRDF,
		keyTypes:  []multikey.KeyType{multikey.P256Public, multikey.Secp256k1Public},
		needsLDCx: true,
	},
}

// Supported reports whether a cryptosuite name is known.
func Supported(name string) bool {
	_, ok := suites[name]
	return ok
}

// DefaultSuite returns the JCS cryptosuite used for keys of type t.
func DefaultSuite(t multikey.KeyType) (string, bool) {
	switch t.Public() {
	case multikey.Ed25519Public:
		return EdDSAJCS2022, true
	case multikey.P256Public, multikey.Secp256k1Public:
		return ECDSAJCS2019, true
	}
	return "", false
}

func (s suite) supports(t multikey.KeyType) bool {
	for _, kt := range s.keyTypes {
		if kt == t {
			return true
		}
	}
	return false
}

// hashData builds the bytes that are signed for payload under options.
func (s suite) hashData(payload, options JSONMap, loader ld.DocumentLoader) ([]byte, error) {
	if s.needsLDCx {
		if _, ok := payload["@context"]; !ok {
			return nil, errorf(KindMalformedProof, "%s requires a JSON-LD @context", s.name)
		}
	}

	optionsCanon, err := s.canon(options, loader)
	if err != nil {
		return nil, wrap(KindMalformedProof, err, "canonicalize proof options")
	}
	payloadCanon, err := s.canon(payload, loader)
	if err != nil {
		return nil, wrap(KindMalformedProof, err, "canonicalize payload")
	}

	optionsHash := sha256.Sum256(optionsCanon)
	payloadHash := sha256.Sum256(payloadCanon)
	return append(optionsHash[:], payloadHash[:]...), nil
}

func canonicalizeJCS(doc JSONMap, _ ld.DocumentLoader) ([]byte, error) {
	return Canonicalize(doc)
}

// canonicalizeRDF normalizes a JSON-LD document to URDNA2015 N-Quads.
func canonicalizeRDF(doc JSONMap, loader ld.DocumentLoader) ([]byte, error) {
	// Round-trip through JSON so the processor only sees plain JSON values.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	ldOptions := ld.NewJsonLdOptions("")
	ldOptions.ProcessingMode = ld.JsonLd_1_1
	ldOptions.Algorithm = defaultAlgorithm
	ldOptions.Format = nquadsFormat
	ldOptions.DocumentLoader = loader

	view, err := ld.NewJsonLdProcessor().Normalize(input, ldOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize JSON-LD document: %w", err)
	}
	result, ok := view.(string)
	if !ok {
		return nil, fmt.Errorf("failed to normalize JSON-LD document: unexpected result %T", view)
	}
	return []byte(result), nil
}
