package document

import "fmt"

// ErrorKind classifies document failures.
type ErrorKind string

const (
	KindDanglingReference  ErrorKind = "DanglingReference"
	KindIDMismatch         ErrorKind = "IDMismatch"
	KindDuplicateID        ErrorKind = "DuplicateID"
	KindMissingField       ErrorKind = "MissingField"
	KindInvalidKeyMaterial ErrorKind = "InvalidKeyMaterial"
	KindMalformed          ErrorKind = "Malformed"
	KindFragmentNotFound   ErrorKind = "FragmentNotFound"
	KindPathNotSupported   ErrorKind = "PathNotSupported"
)

var (
	ErrDanglingReference  = &Error{Kind: KindDanglingReference}
	ErrIDMismatch         = &Error{Kind: KindIDMismatch}
	ErrDuplicateID        = &Error{Kind: KindDuplicateID}
	ErrMissingField       = &Error{Kind: KindMissingField}
	ErrInvalidKeyMaterial = &Error{Kind: KindInvalidKeyMaterial}
	ErrMalformed          = &Error{Kind: KindMalformed}
	ErrFragmentNotFound   = &Error{Kind: KindFragmentNotFound}
	ErrPathNotSupported   = &Error{Kind: KindPathNotSupported}
)

// Error reports an invalid document or a failed dereference.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "document: " + string(e.Kind)
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
