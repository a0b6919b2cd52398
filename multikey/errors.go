package multikey

import "fmt"

// ErrorKind classifies codec failures.
type ErrorKind string

const (
	KindUnsupportedKeyType ErrorKind = "UnsupportedKeyType"
	KindLengthMismatch     ErrorKind = "LengthMismatch"
	KindUnsupportedCurve   ErrorKind = "UnsupportedCurve"
	KindInvalidEncoding    ErrorKind = "InvalidEncoding"
)

var (
	ErrUnsupportedKeyType = &Error{Kind: KindUnsupportedKeyType}
	ErrLengthMismatch     = &Error{Kind: KindLengthMismatch}
	ErrUnsupportedCurve   = &Error{Kind: KindUnsupportedCurve}
	ErrInvalidEncoding    = &Error{Kind: KindInvalidEncoding}
)

// Error is returned for any key material that cannot be encoded or decoded.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "multikey: " + string(e.Kind)
	}
	return fmt.Sprintf("multikey: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
