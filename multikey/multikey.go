// Package multikey converts raw key bytes to and from their multibase
// multicodec ("Multikey") and JWK representations.
package multikey

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

// KeyType identifies a key algorithm and whether the bytes are public or private.
type KeyType int

const (
	Unknown KeyType = iota
	Ed25519Public
	X25519Public
	Secp256k1Public
	P256Public
	Ed25519Private
	X25519Private
	Secp256k1Private
	P256Private
)

type codec struct {
	name   string
	code   uint64
	size   int
	public KeyType
}

// Multicodec table entries. Public EC keys are SEC1 compressed points.
var codecs = map[KeyType]codec{
	Ed25519Public:    {name: "Ed25519", code: 0xed, size: 32, public: Ed25519Public},
	X25519Public:     {name: "X25519", code: 0xec, size: 32, public: X25519Public},
	Secp256k1Public:  {name: "secp256k1", code: 0xe7, size: 33, public: Secp256k1Public},
	P256Public:       {name: "P-256", code: 0x1200, size: 33, public: P256Public},
	Ed25519Private:   {name: "Ed25519 private", code: 0x1300, size: 32, public: Ed25519Public},
	Secp256k1Private: {name: "secp256k1 private", code: 0x1301, size: 32, public: Secp256k1Public},
	X25519Private:    {name: "X25519 private", code: 0x1302, size: 32, public: X25519Public},
	P256Private:      {name: "P-256 private", code: 0x1306, size: 32, public: P256Public},
}

var byCode = func() map[uint64]KeyType {
	m := make(map[uint64]KeyType, len(codecs))
	for t, c := range codecs {
		m[c.code] = t
	}
	return m
}()

func (t KeyType) String() string {
	if c, ok := codecs[t]; ok {
		return c.name
	}
	return "unknown"
}

// Code returns the multicodec code of t.
func (t KeyType) Code() uint64 { return codecs[t].code }

// Size returns the raw key length in bytes.
func (t KeyType) Size() int { return codecs[t].size }

// IsPrivate reports whether t denotes private key material.
func (t KeyType) IsPrivate() bool {
	c, ok := codecs[t]
	return ok && c.public != t
}

// Public returns the public counterpart of t.
func (t KeyType) Public() KeyType { return codecs[t].public }

// CanSign reports whether keys of this algorithm produce signatures.
func (t KeyType) CanSign() bool {
	switch t.Public() {
	case Ed25519Public, Secp256k1Public, P256Public:
		return true
	}
	return false
}

// Key is raw key material tagged with its type.
type Key struct {
	Type  KeyType
	Bytes []byte
}

// New validates raw against the length required by t.
func New(t KeyType, raw []byte) (Key, error) {
	c, ok := codecs[t]
	if !ok {
		return Key{}, errorf(KindUnsupportedKeyType, "key type %d", int(t))
	}
	if len(raw) != c.size {
		return Key{}, errorf(KindLengthMismatch, "%s wants %d bytes, got %d", c.name, c.size, len(raw))
	}
	return Key{Type: t, Bytes: bytes.Clone(raw)}, nil
}

// Equal reports whether both keys have the same type and bytes.
func (k Key) Equal(o Key) bool {
	return k.Type == o.Type && bytes.Equal(k.Bytes, o.Bytes)
}

// Multibase returns the base58btc multikey encoding of k.
func (k Key) Multibase() string {
	s, _ := Encode(k.Type, k.Bytes)
	return s
}

// PublicKey returns k itself for public keys and derives the public key for
// private ones.
func (k Key) PublicKey() (Key, error) {
	if !k.Type.IsPrivate() {
		return k, nil
	}
	if len(k.Bytes) != k.Type.Size() {
		return Key{}, errorf(KindLengthMismatch, "%s wants %d bytes, got %d", k.Type, k.Type.Size(), len(k.Bytes))
	}
	var pub []byte
	switch k.Type {
	case Ed25519Private:
		pub = ed25519.NewKeyFromSeed(k.Bytes).Public().(ed25519.PublicKey)
	case X25519Private:
		priv, err := ecdh.X25519().NewPrivateKey(k.Bytes)
		if err != nil {
			return Key{}, errorf(KindInvalidEncoding, "x25519 private key: %v", err)
		}
		pub = priv.PublicKey().Bytes()
	case Secp256k1Private:
		pub = secp256k1.PrivKeyFromBytes(k.Bytes).PubKey().SerializeCompressed()
	case P256Private:
		priv, err := ecdh.P256().NewPrivateKey(k.Bytes)
		if err != nil {
			return Key{}, errorf(KindInvalidEncoding, "p-256 private key: %v", err)
		}
		pub = compressP256(priv.PublicKey().Bytes())
	}
	return New(k.Type.Public(), pub)
}

// Encode produces the multibase (base58btc) encoding of varint(code) || raw.
func Encode(t KeyType, raw []byte) (string, error) {
	k, err := New(t, raw)
	if err != nil {
		return "", err
	}
	buf := append(varint.ToUvarint(t.Code()), k.Bytes...)
	s, err := multibase.Encode(multibase.Base58BTC, buf)
	if err != nil {
		return "", errorf(KindInvalidEncoding, "%v", err)
	}
	return s, nil
}

// Decode parses a multibase multikey string. Any multibase alphabet is
// accepted; base58btc ('z') is the one produced by Encode.
func Decode(s string) (Key, error) {
	if s == "" {
		return Key{}, errorf(KindInvalidEncoding, "empty multibase string")
	}
	_, buf, err := multibase.Decode(s)
	if err != nil {
		return Key{}, errorf(KindInvalidEncoding, "%v", err)
	}
	code, n, err := varint.FromUvarint(buf)
	if err != nil {
		return Key{}, errorf(KindInvalidEncoding, "multicodec prefix: %v", err)
	}
	t, ok := byCode[code]
	if !ok {
		return Key{}, errorf(KindUnsupportedKeyType, "multicodec 0x%x", code)
	}
	return New(t, buf[n:])
}

// compressP256 converts an uncompressed SEC1 point (0x04||X||Y) to its
// compressed form.
func compressP256(uncompressed []byte) []byte {
	out := make([]byte, 33)
	out[0] = 0x02 | (uncompressed[64] & 1)
	copy(out[1:], uncompressed[1:33])
	return out
}
