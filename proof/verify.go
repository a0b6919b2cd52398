package proof

import (
	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-did-resolver/crypto"
	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/document"
)

// Verify checks p over payload using the verification method it names in
// doc. The payload's own proof member is ignored. A nil error means the
// proof is valid.
func Verify(doc *document.Document, payload JSONMap, p Proof, opts ...Option) error {
	o := buildOptions(opts)

	if p.Type != TypeDataIntegrityProof {
		return errorf(KindUnsupportedSignatureScheme, "proof type %q", p.Type)
	}
	s, ok := suites[p.Cryptosuite]
	if !ok {
		return errorf(KindUnsupportedSignatureScheme, "cryptosuite %q", p.Cryptosuite)
	}

	vmURL, err := did.ParseReference(doc.ID(), p.VerificationMethod)
	if err != nil {
		return wrap(KindMalformedProof, err, "verificationMethod")
	}
	vm, ok := doc.VerificationMethod(vmURL)
	if !ok && len(vmURL.Query) > 0 {
		// The query selected the document version; ids inside it carry none.
		vmURL.Query = nil
		vm, ok = doc.VerificationMethod(vmURL)
	}
	if !ok {
		return errorf(KindVerificationMethodNotFound, "%s", p.VerificationMethod)
	}

	if p.ProofPurpose != "" {
		rel := document.Relationship(p.ProofPurpose)
		if !rel.Valid() || !doc.HasRelationship(rel, vm.ID) {
			return errorf(KindInvalidProofPurpose, "%s is not authorized for %s", vm.ID, p.ProofPurpose)
		}
	}
	if o.Challenge != "" && p.Challenge != o.Challenge {
		return errorf(KindMalformedProof, "challenge mismatch")
	}
	if o.Domain != "" && p.Domain != o.Domain {
		return errorf(KindMalformedProof, "domain mismatch")
	}

	if !s.supports(vm.Key.Type) {
		return errorf(KindUnsupportedSignatureScheme, "%s cannot use %s keys", s.name, vm.Key.Type)
	}

	if p.ProofValue == "" {
		return errorf(KindMalformedProof, "missing proofValue")
	}
	_, signature, err := multibase.Decode(p.ProofValue)
	if err != nil {
		return wrap(KindMalformedProof, err, "proofValue")
	}

	options, err := p.options()
	if err != nil {
		return wrap(KindMalformedProof, err, "proof options")
	}
	data, err := s.hashData(payload.WithoutProof(), options, o.DocumentLoader)
	if err != nil {
		return err
	}

	if err := crypto.Verify(vm.Key, data, signature); err != nil {
		return wrap(KindSignatureInvalid, err, "%s", vm.ID)
	}
	return nil
}

// VerifyAttached verifies every proof attached to payload. A payload without
// proofs fails with MalformedProof.
func VerifyAttached(doc *document.Document, payload JSONMap, opts ...Option) error {
	proofs, err := payload.Proofs()
	if err != nil {
		return err
	}
	if len(proofs) == 0 {
		return errorf(KindMalformedProof, "payload has no proof")
	}
	for _, p := range proofs {
		if err := Verify(doc, payload, p, opts...); err != nil {
			return err
		}
	}
	return nil
}
