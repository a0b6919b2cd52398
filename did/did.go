// Package did parses and formats decentralized identifiers and DID URLs.
//
// A DID has the shape did:<method>:<method-specific-id>. A DID URL adds an
// optional path, an ordered query and a fragment. Path, query and fragment
// are percent-decoded on parse and re-encoded on format; the method-specific
// id is kept verbatim because its encoding is owned by the method.
package did

import "strings"

const scheme = "did:"

// DID is a parsed decentralized identifier. The zero value is not a valid DID.
type DID struct {
	Method string
	ID     string
}

// String formats the DID as did:<method>:<id>.
func (d DID) String() string {
	return scheme + d.Method + ":" + d.ID
}

// IsZero reports whether d is the zero value.
func (d DID) IsZero() bool {
	return d.Method == "" && d.ID == ""
}

// URL returns a bare DID URL for d.
func (d DID) URL() URL {
	return URL{DID: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d DID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse parses a bare DID. Any path, query or fragment is rejected.
func Parse(s string) (DID, error) {
	if strings.ContainsAny(s, "/?#") {
		return DID{}, newParseError(KindInvalidMethodSpecificID, s, "bare DID must not carry path, query or fragment")
	}
	return parseDID(s)
}

func parseDID(s string) (DID, error) {
	if !strings.HasPrefix(s, scheme) {
		return DID{}, newParseError(KindInvalidScheme, s, "missing did: prefix")
	}

	rest := s[len(scheme):]
	method, msid, ok := strings.Cut(rest, ":")
	if !ok {
		return DID{}, newParseError(KindInvalidMethod, s, "missing method-specific id")
	}
	if !validMethod(method) {
		return DID{}, newParseError(KindInvalidMethod, s, "method must be non-empty lowercase alphanumerics")
	}
	if err := validateMethodSpecificID(msid); err != "" {
		return DID{}, newParseError(KindInvalidMethodSpecificID, s, err)
	}

	return DID{Method: method, ID: msid}, nil
}

func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		c := m[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// validateMethodSpecificID returns a non-empty reason when msid is invalid.
func validateMethodSpecificID(msid string) string {
	if msid == "" {
		return "empty method-specific id"
	}
	if strings.HasSuffix(msid, ":") {
		return "method-specific id must not end with ':'"
	}
	for i := 0; i < len(msid); i++ {
		c := msid[i]
		switch {
		case isIDChar(c), c == ':':
		case c == '%':
			if i+2 >= len(msid) || !isHex(msid[i+1]) || !isHex(msid[i+2]) {
				return "malformed percent-encoding"
			}
			i += 2
		default:
			return "illegal character " + string(c)
		}
	}
	return ""
}

func isIDChar(c byte) bool {
	return isAlphaNum(c) || c == '.' || c == '-' || c == '_'
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
