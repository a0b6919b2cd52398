package crypto

import (
	"crypto/ed25519"
	"fmt"
)

type ed25519Verifier struct{}

func (ed25519Verifier) Verify(signature, msg, pubKeyBytes []byte) error {
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519: public key must be %d bytes", ed25519.PublicKeySize)
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: ed25519 signature must be %d bytes", ErrInvalidSignature, ed25519.SignatureSize)
	}
	if !ed25519.Verify(pubKeyBytes, msg, signature) {
		return ErrInvalidSignature
	}
	return nil
}

type ed25519Signer struct{}

func (ed25519Signer) Sign(msg, privKeyBytes []byte) ([]byte, error) {
	if len(privKeyBytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519: private key must be a %d byte seed", ed25519.SeedSize)
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(privKeyBytes), msg), nil
}
