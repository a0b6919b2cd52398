// Package keyservice defines the signing collaborator used to author proofs
// and verifiable-log entries, with in-memory and HTTP implementations.
package keyservice

import (
	"context"
	"errors"

	"github.com/pilacorp/go-did-resolver/multikey"
)

var (
	ErrKeyNotFound = errors.New("keyservice: key not found")
	ErrSigning     = errors.New("keyservice: signing failed")
)

// KeyService signs bytes with a named key and exposes its public half.
// Private key material never leaves the implementation.
type KeyService interface {
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)
	PublicKey(ctx context.Context, keyID string) (multikey.Key, error)
}
