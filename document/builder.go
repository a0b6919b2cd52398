package document

import (
	"github.com/pilacorp/go-did-resolver/did"
	"github.com/pilacorp/go-did-resolver/multikey"
)

type pendingRef struct {
	rel Relationship
	id  did.URL
	vm  *VerificationMethod
}

// Builder accumulates document parts. Build validates them all at once, so
// a document is either fully consistent or not produced.
type Builder struct {
	id          did.DID
	context     any
	controllers []did.DID
	alsoKnownAs []string
	methods     []VerificationMethod
	refs        []pendingRef
	services    []Service
}

// NewBuilder starts a document for id.
func NewBuilder(id did.DID) *Builder {
	return &Builder{id: id}
}

// Context sets the @context value. Without it the DID v1 context is used.
func (b *Builder) Context(ctx any) *Builder {
	b.context = ctx
	return b
}

// Controller adds document controllers.
func (b *Builder) Controller(c ...did.DID) *Builder {
	b.controllers = append(b.controllers, c...)
	return b
}

// AlsoKnownAs adds alternative identifiers.
func (b *Builder) AlsoKnownAs(uri ...string) *Builder {
	b.alsoKnownAs = append(b.alsoKnownAs, uri...)
	return b
}

// VerificationMethod declares vm and references it from each relationship in rels.
func (b *Builder) VerificationMethod(vm VerificationMethod, rels ...Relationship) *Builder {
	b.methods = append(b.methods, vm)
	for _, rel := range rels {
		b.refs = append(b.refs, pendingRef{rel: rel, id: vm.ID})
	}
	return b
}

// Reference lists a declared method under rel.
func (b *Builder) Reference(rel Relationship, id did.URL) *Builder {
	b.refs = append(b.refs, pendingRef{rel: rel, id: id})
	return b
}

// Embed places vm inline under rel.
func (b *Builder) Embed(rel Relationship, vm VerificationMethod) *Builder {
	b.refs = append(b.refs, pendingRef{rel: rel, vm: &vm})
	return b
}

// Service adds a service entry.
func (b *Builder) Service(s Service) *Builder {
	b.services = append(b.services, s)
	return b
}

// Build validates the accumulated parts and returns the finalized document.
func (b *Builder) Build() (*Document, error) {
	if b.id.IsZero() {
		return nil, errorf(KindMissingField, "id")
	}

	doc := &Document{
		context:       cloneValue(b.context),
		id:            b.id,
		controllers:   append([]did.DID(nil), b.controllers...),
		alsoKnownAs:   append([]string(nil), b.alsoKnownAs...),
		relationships: map[Relationship][]entry{},
	}
	if doc.context == nil {
		doc.context = ContextDIDv1
	}

	ids := map[string]struct{}{}
	claim := func(id did.URL) error {
		if err := b.owns(id); err != nil {
			return err
		}
		key := id.String()
		if _, dup := ids[key]; dup {
			return errorf(KindDuplicateID, "%s", key)
		}
		ids[key] = struct{}{}
		return nil
	}

	declared := map[string]int{}
	for _, vm := range b.methods {
		if err := checkMethod(vm); err != nil {
			return nil, err
		}
		if err := claim(vm.ID); err != nil {
			return nil, err
		}
		declared[vm.ID.String()] = len(doc.methods)
		doc.methods = append(doc.methods, cloneMethod(vm))
	}

	for _, ref := range b.refs {
		if !ref.rel.Valid() {
			return nil, errorf(KindMalformed, "unknown relationship %q", ref.rel)
		}
		if ref.vm != nil {
			if err := checkMethod(*ref.vm); err != nil {
				return nil, err
			}
			if err := claim(ref.vm.ID); err != nil {
				return nil, err
			}
			doc.relationships[ref.rel] = append(doc.relationships[ref.rel], entry{index: len(doc.embedded), embedded: true})
			doc.embedded = append(doc.embedded, cloneMethod(*ref.vm))
			continue
		}
		idx, ok := declared[ref.id.String()]
		if !ok {
			return nil, errorf(KindDanglingReference, "%s references %s", ref.rel, ref.id)
		}
		doc.relationships[ref.rel] = append(doc.relationships[ref.rel], entry{index: idx})
	}

	for _, s := range b.services {
		if len(s.Type) == 0 {
			return nil, errorf(KindMissingField, "service %s type", s.ID)
		}
		if s.Endpoint == nil {
			return nil, errorf(KindMissingField, "service %s serviceEndpoint", s.ID)
		}
		if err := claim(s.ID); err != nil {
			return nil, err
		}
		s.Type = append([]string(nil), s.Type...)
		doc.services = append(doc.services, cloneService(s))
	}

	return doc, nil
}

// owns checks that id lives under the document DID or one of its controllers.
func (b *Builder) owns(id did.URL) error {
	if id.DID == b.id {
		return nil
	}
	for _, c := range b.controllers {
		if id.DID == c {
			return nil
		}
	}
	return errorf(KindIDMismatch, "%s does not belong to %s", id, b.id)
}

func checkMethod(vm VerificationMethod) error {
	if vm.ID.Fragment == "" && vm.ID.Path == "" {
		return errorf(KindMissingField, "verification method id %s has no fragment", vm.ID)
	}
	if vm.Type == "" {
		return errorf(KindMissingField, "verification method %s type", vm.ID)
	}
	if vm.Controller.IsZero() {
		return errorf(KindMissingField, "verification method %s controller", vm.ID)
	}
	if vm.Key.Type.IsPrivate() {
		return errorf(KindInvalidKeyMaterial, "verification method %s carries a private key", vm.ID)
	}
	if _, err := multikey.New(vm.Key.Type, vm.Key.Bytes); err != nil {
		return wrap(KindInvalidKeyMaterial, err, "verification method %s", vm.ID)
	}
	return nil
}

