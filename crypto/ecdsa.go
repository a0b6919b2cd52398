package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const ecKeySize = 32

// Secp256k1Verifier verifies ECDSA secp256k1 signatures over SHA-256 digests.
type Secp256k1Verifier struct {
	hash crypto.Hash
}

// NewSecp256k1 creates a new signature verifier for ECDSA secp256k1.
func NewSecp256k1() *Secp256k1Verifier {
	return &Secp256k1Verifier{hash: crypto.SHA256}
}

// Verify accepts r||s, r||s||v and ASN.1 DER signatures.
func (v *Secp256k1Verifier) Verify(signature, msg, pubKeyBytes []byte) error {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("secp256k1: invalid public key: %w", err)
	}

	var sig *btcecdsa.Signature
	switch len(signature) {
	case 2 * ecKeySize, 2*ecKeySize + 1:
		var r, s btcec.ModNScalar
		if r.SetByteSlice(signature[:ecKeySize]) || s.SetByteSlice(signature[ecKeySize:2*ecKeySize]) {
			return fmt.Errorf("%w: secp256k1 scalar overflow", ErrInvalidSignature)
		}
		if r.IsZero() || s.IsZero() {
			return fmt.Errorf("%w: secp256k1 zero scalar", ErrInvalidSignature)
		}
		sig = btcecdsa.NewSignature(&r, &s)
	default:
		sig, err = btcecdsa.ParseDERSignature(signature)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	digest := digest(v.hash, msg)
	if !sig.Verify(digest, pubKey) {
		return ErrInvalidSignature
	}
	return nil
}

// P256Verifier verifies ECDSA P-256 signatures over SHA-256 digests.
type P256Verifier struct {
	curve elliptic.Curve
	hash  crypto.Hash
}

// NewP256 creates a new signature verifier for ECDSA P-256.
func NewP256() *P256Verifier {
	return &P256Verifier{curve: elliptic.P256(), hash: crypto.SHA256}
}

// Verify accepts r||s and ASN.1 DER signatures.
func (v *P256Verifier) Verify(signature, msg, pubKeyBytes []byte) error {
	x, y := elliptic.UnmarshalCompressed(v.curve, pubKeyBytes)
	if x == nil {
		return errors.New("p-256: invalid public key bytes")
	}
	pubKey := &ecdsa.PublicKey{Curve: v.curve, X: x, Y: y}

	var r, s *big.Int
	if len(signature) == 2*ecKeySize {
		r = new(big.Int).SetBytes(signature[:ecKeySize])
		s = new(big.Int).SetBytes(signature[ecKeySize:])
	} else {
		var esig struct {
			R, S *big.Int
		}
		if _, err := asn1.Unmarshal(signature, &esig); err != nil {
			return fmt.Errorf("%w: p-256 signature size %d", ErrInvalidSignature, len(signature))
		}
		r, s = esig.R, esig.S
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return fmt.Errorf("%w: p-256 signature format", ErrInvalidSignature)
	}

	if !ecdsa.Verify(pubKey, digest(v.hash, msg), r, s) {
		return ErrInvalidSignature
	}
	return nil
}

type secp256k1Signer struct{}

// Sign signs SHA-256(msg) and drops the recovery byte.
func (secp256k1Signer) Sign(msg, privKeyBytes []byte) ([]byte, error) {
	privKey, err := ethcrypto.ToECDSA(privKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: %w", err)
	}
	hash := sha256.Sum256(msg)
	sig, err := ethcrypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("secp256k1: sign error: %w", err)
	}
	return sig[:2*ecKeySize], nil
}

type p256Signer struct{}

func (p256Signer) Sign(msg, privKeyBytes []byte) ([]byte, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(privKeyBytes)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, errors.New("p-256: invalid private key")
	}
	priv := &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve}, D: d}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(privKeyBytes)

	hash := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		return nil, fmt.Errorf("p-256: sign error: %w", err)
	}

	// Pad r and s to fixed length
	signature := make([]byte, 2*ecKeySize)
	r.FillBytes(signature[:ecKeySize])
	s.FillBytes(signature[ecKeySize:])
	return signature, nil
}

func digest(h crypto.Hash, msg []byte) []byte {
	hasher := h.New()
	hasher.Write(msg)
	return hasher.Sum(nil)
}
