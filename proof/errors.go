package proof

import "fmt"

// ErrorKind classifies verification failures.
type ErrorKind string

const (
	KindVerificationMethodNotFound ErrorKind = "VerificationMethodNotFound"
	KindUnsupportedSignatureScheme ErrorKind = "UnsupportedSignatureScheme"
	KindSignatureInvalid           ErrorKind = "SignatureInvalid"
	KindMalformedProof             ErrorKind = "MalformedProof"
	KindInvalidProofPurpose        ErrorKind = "InvalidProofPurpose"
)

var (
	ErrVerificationMethodNotFound = &Error{Kind: KindVerificationMethodNotFound}
	ErrUnsupportedSignatureScheme = &Error{Kind: KindUnsupportedSignatureScheme}
	ErrSignatureInvalid           = &Error{Kind: KindSignatureInvalid}
	ErrMalformedProof             = &Error{Kind: KindMalformedProof}
	ErrInvalidProofPurpose        = &Error{Kind: KindInvalidProofPurpose}
)

// Error is returned when a proof cannot be verified.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "proof: " + string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func wrap(kind ErrorKind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
