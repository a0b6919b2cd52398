package keyservice

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/pilacorp/go-did-resolver/crypto"
	"github.com/pilacorp/go-did-resolver/multikey"
)

// Memory keeps private keys in process memory. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]multikey.Key
}

// NewMemory returns an empty key service.
func NewMemory() *Memory {
	return &Memory{keys: map[string]multikey.Key{}}
}

// Generate creates a private key of the given public type under keyID and
// returns its public key.
func (m *Memory) Generate(keyID string, t multikey.KeyType) (multikey.Key, error) {
	var raw []byte
	switch t.Public() {
	case multikey.Ed25519Public:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return multikey.Key{}, err
		}
		raw = priv.Seed()
	case multikey.Secp256k1Public:
		priv, err := ethcrypto.GenerateKey()
		if err != nil {
			return multikey.Key{}, err
		}
		raw = ethcrypto.FromECDSA(priv)
	case multikey.P256Public:
		priv, err := ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return multikey.Key{}, err
		}
		raw = priv.Bytes()
	default:
		return multikey.Key{}, fmt.Errorf("%w: cannot generate %s signing keys", crypto.ErrUnsupportedKey, t)
	}

	priv, err := multikey.New(privateType(t.Public()), raw)
	if err != nil {
		return multikey.Key{}, err
	}
	if err := m.Import(keyID, priv); err != nil {
		return multikey.Key{}, err
	}
	return priv.PublicKey()
}

// Import stores an existing private key under keyID, replacing any previous key.
func (m *Memory) Import(keyID string, priv multikey.Key) error {
	if !priv.Type.IsPrivate() {
		return fmt.Errorf("keyservice: %s is not a private key", priv.Type)
	}
	if _, err := priv.PublicKey(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[keyID] = priv
	return nil
}

// Rotate replaces the key under keyID with a fresh key of the same type and
// returns the new public key.
func (m *Memory) Rotate(keyID string) (multikey.Key, error) {
	old, err := m.lookup(keyID)
	if err != nil {
		return multikey.Key{}, err
	}
	return m.Generate(keyID, old.Type.Public())
}

// Sign signs data with the key stored under keyID.
func (m *Memory) Sign(_ context.Context, keyID string, data []byte) ([]byte, error) {
	priv, err := m.lookup(keyID)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(priv, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return sig, nil
}

// PublicKey returns the public key for keyID.
func (m *Memory) PublicKey(_ context.Context, keyID string) (multikey.Key, error) {
	priv, err := m.lookup(keyID)
	if err != nil {
		return multikey.Key{}, err
	}
	return priv.PublicKey()
}

func (m *Memory) lookup(keyID string) (multikey.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	priv, ok := m.keys[keyID]
	if !ok {
		return multikey.Key{}, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}
	return priv, nil
}

func privateType(pub multikey.KeyType) multikey.KeyType {
	switch pub {
	case multikey.Ed25519Public:
		return multikey.Ed25519Private
	case multikey.Secp256k1Public:
		return multikey.Secp256k1Private
	case multikey.P256Public:
		return multikey.P256Private
	}
	return multikey.Unknown
}
