package did

import "fmt"

// ErrorKind classifies why an identifier was rejected.
type ErrorKind string

const (
	KindInvalidScheme           ErrorKind = "InvalidScheme"
	KindInvalidMethod           ErrorKind = "InvalidMethod"
	KindInvalidMethodSpecificID ErrorKind = "InvalidMethodSpecificID"
	KindInvalidURL              ErrorKind = "InvalidURL"
)

// Sentinels for use with errors.Is.
var (
	ErrInvalidScheme           = &ParseError{Kind: KindInvalidScheme}
	ErrInvalidMethod           = &ParseError{Kind: KindInvalidMethod}
	ErrInvalidMethodSpecificID = &ParseError{Kind: KindInvalidMethodSpecificID}
	ErrInvalidURL              = &ParseError{Kind: KindInvalidURL}
)

// ParseError is returned by Parse and ParseURL.
type ParseError struct {
	Kind   ErrorKind
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("did: %s: %q", e.Kind, e.Input)
	}
	return fmt.Sprintf("did: %s: %q: %s", e.Kind, e.Input, e.Reason)
}

// Is matches any ParseError of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

func newParseError(kind ErrorKind, input, reason string) error {
	return &ParseError{Kind: kind, Input: input, Reason: reason}
}
