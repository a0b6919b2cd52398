package document

import (
	"bytes"
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/multikey"
)

type methodJSON struct {
	ID                 string        `json:"id"`
	Type               MethodType    `json:"type"`
	Controller         string        `json:"controller,omitempty"`
	PublicKeyMultibase string        `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *multikey.JWK `json:"publicKeyJwk,omitempty"`
	PublicKeyBase58    string        `json:"publicKeyBase58,omitempty"`
}

type serviceJSON struct {
	ID              string          `json:"id"`
	Type            json.RawMessage `json:"type"`
	ServiceEndpoint any             `json:"serviceEndpoint"`
}

type documentJSON struct {
	Context              any               `json:"@context,omitempty"`
	ID                   string            `json:"id"`
	Controller           json.RawMessage   `json:"controller,omitempty"`
	AlsoKnownAs          []string          `json:"alsoKnownAs,omitempty"`
	VerificationMethod   []methodJSON      `json:"verificationMethod,omitempty"`
	Authentication       []json.RawMessage `json:"authentication,omitempty"`
	AssertionMethod      []json.RawMessage `json:"assertionMethod,omitempty"`
	KeyAgreement         []json.RawMessage `json:"keyAgreement,omitempty"`
	CapabilityInvocation []json.RawMessage `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []json.RawMessage `json:"capabilityDelegation,omitempty"`
	Service              []serviceJSON     `json:"service,omitempty"`
}

func (dj *documentJSON) relationship(rel Relationship) *[]json.RawMessage {
	switch rel {
	case Authentication:
		return &dj.Authentication
	case AssertionMethod:
		return &dj.AssertionMethod
	case KeyAgreement:
		return &dj.KeyAgreement
	case CapabilityInvocation:
		return &dj.CapabilityInvocation
	case CapabilityDelegation:
		return &dj.CapabilityDelegation
	}
	return nil
}

// Parse decodes and finalizes a JSON DID document. Relative ids ("#key-1")
// are resolved against the document id.
func Parse(data []byte) (*Document, error) {
	var dj documentJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return nil, wrap(KindMalformed, err, "decode")
	}
	if dj.ID == "" {
		return nil, errorf(KindMissingField, "id")
	}
	id, err := did.Parse(dj.ID)
	if err != nil {
		return nil, wrap(KindMalformed, err, "id")
	}

	b := NewBuilder(id).Context(dj.Context).AlsoKnownAs(dj.AlsoKnownAs...)

	controllers, err := stringOrList(dj.Controller)
	if err != nil {
		return nil, wrap(KindMalformed, err, "controller")
	}
	for _, c := range controllers {
		cd, err := did.Parse(c)
		if err != nil {
			return nil, wrap(KindMalformed, err, "controller")
		}
		b.Controller(cd)
	}

	for _, mj := range dj.VerificationMethod {
		vm, err := mj.decode(id)
		if err != nil {
			return nil, err
		}
		b.VerificationMethod(vm)
	}

	for _, rel := range Relationships {
		for _, raw := range *dj.relationship(rel) {
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '"' {
				var ref string
				if err := json.Unmarshal(raw, &ref); err != nil {
					return nil, wrap(KindMalformed, err, "%s", rel)
				}
				u, err := did.ParseReference(id, ref)
				if err != nil {
					return nil, wrap(KindMalformed, err, "%s", rel)
				}
				b.Reference(rel, u)
				continue
			}
			var mj methodJSON
			if err := json.Unmarshal(raw, &mj); err != nil {
				return nil, wrap(KindMalformed, err, "%s", rel)
			}
			vm, err := mj.decode(id)
			if err != nil {
				return nil, err
			}
			b.Embed(rel, vm)
		}
	}

	for _, sj := range dj.Service {
		u, err := did.ParseReference(id, sj.ID)
		if err != nil {
			return nil, wrap(KindMalformed, err, "service id")
		}
		types, err := stringOrList(sj.Type)
		if err != nil {
			return nil, wrap(KindMalformed, err, "service %s type", sj.ID)
		}
		b.Service(Service{ID: u, Type: types, Endpoint: sj.ServiceEndpoint})
	}

	return b.Build()
}

func (mj methodJSON) decode(docID did.DID) (VerificationMethod, error) {
	if mj.ID == "" {
		return VerificationMethod{}, errorf(KindMissingField, "verification method id")
	}
	id, err := did.ParseReference(docID, mj.ID)
	if err != nil {
		return VerificationMethod{}, wrap(KindMalformed, err, "verification method id")
	}

	controller := docID
	if mj.Controller != "" {
		if controller, err = did.Parse(mj.Controller); err != nil {
			return VerificationMethod{}, wrap(KindMalformed, err, "verification method %s controller", mj.ID)
		}
	}

	vm := VerificationMethod{ID: id, Type: mj.Type, Controller: controller}

	var fromMultibase, fromJWK *multikey.Key
	if mj.PublicKeyMultibase != "" {
		k, err := multikey.Decode(mj.PublicKeyMultibase)
		if err != nil {
			return VerificationMethod{}, wrap(KindInvalidKeyMaterial, err, "verification method %s", mj.ID)
		}
		fromMultibase = &k
	}
	if mj.PublicKeyJwk != nil {
		if mj.PublicKeyJwk.IsPrivate() {
			return VerificationMethod{}, errorf(KindInvalidKeyMaterial, "verification method %s publishes a private JWK", mj.ID)
		}
		k, err := multikey.FromJWK(*mj.PublicKeyJwk)
		if err != nil {
			return VerificationMethod{}, wrap(KindInvalidKeyMaterial, err, "verification method %s", mj.ID)
		}
		fromJWK = &k
	}

	switch {
	case fromMultibase != nil && fromJWK != nil:
		if !fromMultibase.Equal(*fromJWK) {
			return VerificationMethod{}, errorf(KindInvalidKeyMaterial, "verification method %s multibase and JWK keys differ", mj.ID)
		}
		vm.Key, vm.Encoding = *fromMultibase, EncodingMultibase
	case fromMultibase != nil:
		vm.Key, vm.Encoding = *fromMultibase, EncodingMultibase
	case fromJWK != nil:
		vm.Key, vm.Encoding = *fromJWK, EncodingJWK
	case mj.PublicKeyBase58 != "":
		raw, err := base58.Decode(mj.PublicKeyBase58)
		if err != nil {
			return VerificationMethod{}, wrap(KindInvalidKeyMaterial, err, "verification method %s publicKeyBase58", mj.ID)
		}
		k, err := multikey.New(base58KeyType(mj.Type), raw)
		if err != nil {
			return VerificationMethod{}, wrap(KindInvalidKeyMaterial, err, "verification method %s publicKeyBase58", mj.ID)
		}
		vm.Key, vm.Encoding = k, EncodingBase58
	default:
		return VerificationMethod{}, errorf(KindMissingField, "verification method %s has no public key", mj.ID)
	}

	return vm, nil
}

func encodeMethod(vm VerificationMethod) (methodJSON, error) {
	mj := methodJSON{ID: vm.ID.String(), Type: vm.Type, Controller: vm.Controller.String()}
	switch vm.Encoding {
	case EncodingJWK:
		j, err := multikey.ToJWK(vm.Key)
		if err != nil {
			return methodJSON{}, err
		}
		mj.PublicKeyJwk = &j
	case EncodingBase58:
		mj.PublicKeyBase58 = base58.Encode(vm.Key.Bytes)
	default:
		s, err := multikey.Encode(vm.Key.Type, vm.Key.Bytes)
		if err != nil {
			return methodJSON{}, err
		}
		mj.PublicKeyMultibase = s
	}
	return mj, nil
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	dj := documentJSON{
		Context:     d.context,
		ID:          d.id.String(),
		AlsoKnownAs: d.alsoKnownAs,
	}

	switch len(d.controllers) {
	case 0:
	case 1:
		dj.Controller, _ = json.Marshal(d.controllers[0].String())
	default:
		list := make([]string, len(d.controllers))
		for i, c := range d.controllers {
			list[i] = c.String()
		}
		dj.Controller, _ = json.Marshal(list)
	}

	for _, vm := range d.methods {
		mj, err := encodeMethod(vm)
		if err != nil {
			return nil, err
		}
		dj.VerificationMethod = append(dj.VerificationMethod, mj)
	}

	for _, rel := range Relationships {
		target := dj.relationship(rel)
		for _, e := range d.relationships[rel] {
			var (
				raw []byte
				err error
			)
			if e.embedded {
				mj, encErr := encodeMethod(d.embedded[e.index])
				if encErr != nil {
					return nil, encErr
				}
				raw, err = json.Marshal(mj)
			} else {
				raw, err = json.Marshal(d.methods[e.index].ID.String())
			}
			if err != nil {
				return nil, err
			}
			*target = append(*target, raw)
		}
	}

	for _, s := range d.services {
		dj.Service = append(dj.Service, encodeService(s))
	}

	return json.Marshal(dj)
}

func encodeService(s Service) serviceJSON {
	sj := serviceJSON{ID: s.ID.String(), ServiceEndpoint: s.Endpoint}
	if len(s.Type) == 1 {
		sj.Type, _ = json.Marshal(s.Type[0])
	} else {
		sj.Type, _ = json.Marshal(s.Type)
	}
	return sj
}

// MarshalJSON encodes the method as it appears in a document.
func (vm VerificationMethod) MarshalJSON() ([]byte, error) {
	mj, err := encodeMethod(vm)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mj)
}

// MarshalJSON encodes the service as it appears in a document.
func (s Service) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeService(s))
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
