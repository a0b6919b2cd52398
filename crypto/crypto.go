// Package crypto signs and verifies raw messages for the key types of the
// multikey codec. Ed25519 signs the message itself; the ECDSA curves sign
// its SHA-256 digest and use the fixed-size r||s encoding.
package crypto

import (
	"errors"
	"fmt"

	"github.com/pilacorp/go-did-resolver/multikey"
)

var (
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	ErrUnsupportedKey   = errors.New("crypto: unsupported key type")
)

// Verifier verifies a signature over msg with public key bytes.
type Verifier interface {
	Verify(signature, msg, pubKeyBytes []byte) error
}

// Signer signs msg with private key bytes.
type Signer interface {
	Sign(msg, privKeyBytes []byte) ([]byte, error)
}

var verifiers = map[multikey.KeyType]Verifier{
	multikey.Ed25519Public:   ed25519Verifier{},
	multikey.Secp256k1Public: NewSecp256k1(),
	multikey.P256Public:      NewP256(),
}

var signers = map[multikey.KeyType]Signer{
	multikey.Ed25519Private:   ed25519Signer{},
	multikey.Secp256k1Private: secp256k1Signer{},
	multikey.P256Private:      p256Signer{},
}

// Verify checks signature over msg with the public key pub.
func Verify(pub multikey.Key, msg, signature []byte) error {
	v, ok := verifiers[pub.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedKey, pub.Type)
	}
	return v.Verify(signature, msg, pub.Bytes)
}

// Sign signs msg with the private key priv.
func Sign(priv multikey.Key, msg []byte) ([]byte, error) {
	s, ok := signers[priv.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, priv.Type)
	}
	return s.Sign(msg, priv.Bytes)
}
