package proof

import (
	"context"
	"fmt"
	"time"

	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-did-resolver/keyservice"
)

// Create signs payload with the key service key keyID and returns a proof
// naming verificationMethod. The payload is not modified.
func Create(ctx context.Context, ks keyservice.KeyService, keyID, verificationMethod string, payload JSONMap, opts ...Option) (Proof, error) {
	o := buildOptions(opts)

	pub, err := ks.PublicKey(ctx, keyID)
	if err != nil {
		return Proof{}, fmt.Errorf("failed to load signing key: %w", err)
	}

	name := o.Cryptosuite
	if name == "" {
		var ok bool
		if name, ok = DefaultSuite(pub.Type); !ok {
			return Proof{}, errorf(KindUnsupportedSignatureScheme, "no cryptosuite for %s keys", pub.Type)
		}
	}
	s, ok := suites[name]
	if !ok {
		return Proof{}, errorf(KindUnsupportedSignatureScheme, "cryptosuite %q", name)
	}
	if !s.supports(pub.Type) {
		return Proof{}, errorf(KindUnsupportedSignatureScheme, "%s cannot use %s keys", name, pub.Type)
	}

	created := o.Created
	if created.IsZero() {
		created = time.Now()
	}

	p := Proof{
		Type:               TypeDataIntegrityProof,
		Cryptosuite:        name,
		Created:            created.UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		ProofPurpose:       string(o.Purpose),
		Challenge:          o.Challenge,
		Domain:             o.Domain,
	}
	if ldContext, ok := payload["@context"]; ok {
		p.Context = ldContext
	}

	options, err := p.options()
	if err != nil {
		return Proof{}, err
	}
	data, err := s.hashData(payload.WithoutProof(), options, o.DocumentLoader)
	if err != nil {
		return Proof{}, err
	}

	signature, err := ks.Sign(ctx, keyID, data)
	if err != nil {
		return Proof{}, fmt.Errorf("failed to sign proof: %w", err)
	}
	p.ProofValue, err = multibase.Encode(multibase.Base58BTC, signature)
	if err != nil {
		return Proof{}, err
	}
	return p, nil
}
