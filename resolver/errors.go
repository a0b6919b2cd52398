package resolver

import (
	"errors"
	"fmt"
)

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	KindInvalidDID                 ErrorKind = "invalidDid"
	KindMethodNotSupported         ErrorKind = "methodNotSupported"
	KindTransport                  ErrorKind = "transportError"
	KindInsecureTransport          ErrorKind = "insecureTransport"
	KindMalformedDocument          ErrorKind = "malformedDocument"
	KindDIDMismatch                ErrorKind = "didMismatch"
	KindLogIntegrity               ErrorKind = "logIntegrityError"
	KindCodec                      ErrorKind = "codecError"
	KindNotFound                   ErrorKind = "notFound"
	KindRepresentationNotSupported ErrorKind = "representationNotSupported"
)

var (
	ErrInvalidDID                 = &Error{Kind: KindInvalidDID}
	ErrMethodNotSupported         = &Error{Kind: KindMethodNotSupported}
	ErrTransport                  = &Error{Kind: KindTransport}
	ErrInsecureTransport          = &Error{Kind: KindInsecureTransport}
	ErrMalformedDocument          = &Error{Kind: KindMalformedDocument}
	ErrDIDMismatch                = &Error{Kind: KindDIDMismatch}
	ErrLogIntegrity               = &Error{Kind: KindLogIntegrity}
	ErrCodec                      = &Error{Kind: KindCodec}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrRepresentationNotSupported = &Error{Kind: KindRepresentationNotSupported}
)

// Error is returned by resolution. Transport errors are retryable; every
// other kind is final for the given input.
type Error struct {
	Kind   ErrorKind
	DID    string
	Detail string
	Err    error
}

// NewError builds a resolution error for id.
func NewError(kind ErrorKind, id string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, DID: id, Detail: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := "resolve"
	if e.DID != "" {
		msg += " " + e.DID
	}
	msg += ": " + string(e.Kind)
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

// Retryable reports whether repeating the same resolution may succeed.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

// IsRetryable reports whether err carries a retryable resolution error.
func IsRetryable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Retryable()
}
