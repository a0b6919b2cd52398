package multikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 8037 appendix A.
const (
	rfc8037D          = "nWGxne_9WmC6hEr0kuwsxERJxWl7MmkZcDusAxyuf2A"
	rfc8037X          = "11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"
	rfc8037Thumbprint = "kPrK_qmxVWaYVA9wwBF6Iuo3vVzz7TxHCTwXBygrS4k"
)

func TestJWKRoundTrip(t *testing.T) {
	for kt, raw := range randomKeys(t) {
		t.Run(kt.String(), func(t *testing.T) {
			k, err := New(kt, raw)
			require.NoError(t, err)

			j, err := ToJWK(k)
			require.NoError(t, err)
			assert.Equal(t, kt.IsPrivate(), j.IsPrivate())

			back, err := FromJWK(j)
			require.NoError(t, err)
			assert.True(t, k.Equal(back))
		})
	}
}

func TestFromJWKRFC8037(t *testing.T) {
	priv, err := FromJWK(JWK{Kty: KtyOKP, Crv: CrvEd25519, X: rfc8037X, D: rfc8037D})
	require.NoError(t, err)
	assert.Equal(t, Ed25519Private, priv.Type)

	pub, err := priv.PublicKey()
	require.NoError(t, err)
	j, err := ToJWK(pub)
	require.NoError(t, err)
	assert.Equal(t, rfc8037X, j.X)

	tp, err := j.Thumbprint()
	require.NoError(t, err)
	assert.Equal(t, rfc8037Thumbprint, tp)
}

func TestFromJWKErrors(t *testing.T) {
	tests := []struct {
		name    string
		jwk     JWK
		wantErr error
	}{
		{name: "rsa", jwk: JWK{Kty: "RSA"}, wantErr: ErrUnsupportedCurve},
		{name: "ed448", jwk: JWK{Kty: KtyOKP, Crv: "Ed448", X: rfc8037X}, wantErr: ErrUnsupportedCurve},
		{name: "p-384", jwk: JWK{Kty: KtyEC, Crv: "P-384", X: rfc8037X, Y: rfc8037X}, wantErr: ErrUnsupportedCurve},
		{name: "short x", jwk: JWK{Kty: KtyOKP, Crv: CrvEd25519, X: "AAAA"}, wantErr: ErrLengthMismatch},
		{name: "bad base64", jwk: JWK{Kty: KtyOKP, Crv: CrvEd25519, X: "!!"}, wantErr: ErrInvalidEncoding},
		{name: "point off curve", jwk: JWK{Kty: KtyEC, Crv: CrvP256, X: rfc8037X, Y: rfc8037X}, wantErr: ErrInvalidEncoding},
		{name: "mismatched d", jwk: JWK{Kty: KtyOKP, Crv: CrvEd25519, X: rfc8037D, D: rfc8037D}, wantErr: ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJWK(tt.jwk)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseJWK(t *testing.T) {
	j, err := ParseJWK([]byte(`{"kty":"OKP","crv":"X25519","x":"` + rfc8037X + `"}`))
	require.NoError(t, err)
	k, err := FromJWK(j)
	require.NoError(t, err)
	assert.Equal(t, X25519Public, k.Type)

	_, err = ParseJWK([]byte(`[`))
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
