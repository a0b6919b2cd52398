package multikey

import (
	"crypto"
	"crypto/ecdh"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JSON Web Key key types and curves understood by the codec.
const (
	KtyOKP = "OKP"
	KtyEC  = "EC"

	CrvEd25519   = "Ed25519"
	CrvX25519    = "X25519"
	CrvSecp256k1 = "secp256k1"
	CrvP256      = "P-256"
)

// JWK is the subset of RFC 7517 members used for OKP and EC keys.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
}

var b64 = base64.RawURLEncoding

// ParseJWK decodes a JSON object into a JWK.
func ParseJWK(data []byte) (JWK, error) {
	var j JWK
	if err := json.Unmarshal(data, &j); err != nil {
		return JWK{}, errorf(KindInvalidEncoding, "jwk: %v", err)
	}
	return j, nil
}

// IsPrivate reports whether the JWK carries the private scalar d.
func (j JWK) IsPrivate() bool { return j.D != "" }

// Public returns j without private members.
func (j JWK) Public() JWK {
	j.D = ""
	return j
}

// ToJWK converts typed key bytes into a JWK. Private keys carry both the
// derived public coordinates and d.
func ToJWK(k Key) (JWK, error) {
	if _, err := New(k.Type, k.Bytes); err != nil {
		return JWK{}, err
	}

	pub, err := k.PublicKey()
	if err != nil {
		return JWK{}, err
	}

	var j JWK
	switch pub.Type {
	case Ed25519Public:
		j = JWK{Kty: KtyOKP, Crv: CrvEd25519, X: b64.EncodeToString(pub.Bytes)}
	case X25519Public:
		j = JWK{Kty: KtyOKP, Crv: CrvX25519, X: b64.EncodeToString(pub.Bytes)}
	case Secp256k1Public:
		pk, err := secp256k1.ParsePubKey(pub.Bytes)
		if err != nil {
			return JWK{}, errorf(KindInvalidEncoding, "secp256k1 point: %v", err)
		}
		j = JWK{Kty: KtyEC, Crv: CrvSecp256k1, X: coord(pk.X()), Y: coord(pk.Y())}
	case P256Public:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pub.Bytes)
		if x == nil {
			return JWK{}, errorf(KindInvalidEncoding, "p-256 point not on curve")
		}
		j = JWK{Kty: KtyEC, Crv: CrvP256, X: coord(x), Y: coord(y)}
	default:
		return JWK{}, errorf(KindUnsupportedCurve, "%s", k.Type)
	}

	if k.Type.IsPrivate() {
		j.D = b64.EncodeToString(k.Bytes)
	}
	return j, nil
}

// FromJWK converts a JWK into typed key bytes. A JWK with d yields the
// private key after checking that it matches the declared public part.
func FromJWK(j JWK) (Key, error) {
	pub, err := publicFromJWK(j)
	if err != nil {
		return Key{}, err
	}
	if !j.IsPrivate() {
		return pub, nil
	}

	d, err := b64.DecodeString(j.D)
	if err != nil {
		return Key{}, errorf(KindInvalidEncoding, "jwk d: %v", err)
	}
	var privType KeyType
	switch pub.Type {
	case Ed25519Public:
		privType = Ed25519Private
	case X25519Public:
		privType = X25519Private
	case Secp256k1Public:
		privType = Secp256k1Private
	case P256Public:
		privType = P256Private
	}
	priv, err := New(privType, d)
	if err != nil {
		return Key{}, err
	}
	derived, err := priv.PublicKey()
	if err != nil {
		return Key{}, err
	}
	if !derived.Equal(pub) {
		return Key{}, errorf(KindInvalidEncoding, "jwk d does not match public coordinates")
	}
	return priv, nil
}

func publicFromJWK(j JWK) (Key, error) {
	switch j.Kty {
	case KtyOKP:
		x, err := b64.DecodeString(j.X)
		if err != nil {
			return Key{}, errorf(KindInvalidEncoding, "jwk x: %v", err)
		}
		switch j.Crv {
		case CrvEd25519:
			return New(Ed25519Public, x)
		case CrvX25519:
			return New(X25519Public, x)
		}
	case KtyEC:
		x, err := b64.DecodeString(j.X)
		if err != nil {
			return Key{}, errorf(KindInvalidEncoding, "jwk x: %v", err)
		}
		y, err := b64.DecodeString(j.Y)
		if err != nil {
			return Key{}, errorf(KindInvalidEncoding, "jwk y: %v", err)
		}
		switch j.Crv {
		case CrvSecp256k1, CrvP256:
			if len(x) != 32 || len(y) != 32 {
				return Key{}, errorf(KindLengthMismatch, "%s coordinates want 32 bytes, got %d and %d", j.Crv, len(x), len(y))
			}
			uncompressed := append(append([]byte{0x04}, x...), y...)
			if j.Crv == CrvSecp256k1 {
				pk, err := secp256k1.ParsePubKey(uncompressed)
				if err != nil {
					return Key{}, errorf(KindInvalidEncoding, "secp256k1 point: %v", err)
				}
				return New(Secp256k1Public, pk.SerializeCompressed())
			}
			if _, err := ecdh.P256().NewPublicKey(uncompressed); err != nil {
				return Key{}, errorf(KindInvalidEncoding, "p-256 point: %v", err)
			}
			return New(P256Public, compressP256(uncompressed))
		}
	}
	return Key{}, errorf(KindUnsupportedCurve, "kty %q crv %q", j.Kty, j.Crv)
}

// Thumbprint returns the base64url RFC 7638 SHA-256 thumbprint of the public
// part of j.
func (j JWK) Thumbprint() (string, error) {
	raw, err := json.Marshal(j.Public())
	if err != nil {
		return "", err
	}
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return "", errorf(KindUnsupportedCurve, "thumbprint: %v", err)
	}
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", errorf(KindInvalidEncoding, "thumbprint: %v", err)
	}
	return b64.EncodeToString(sum), nil
}

func coord(v *big.Int) string {
	return b64.EncodeToString(v.FillBytes(make([]byte, 32)))
}
