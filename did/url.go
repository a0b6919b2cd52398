package did

import (
	"net/url"
	"slices"
	"strings"
)

// QueryParam is one key/value pair of a DID URL query. Order and duplicates
// are preserved.
type QueryParam struct {
	Key   string
	Value string
}

// URL is a DID plus optional path, query and fragment. Path, query and
// fragment hold decoded values. RawPath keeps the encoded path when it
// differs from the default encoding of Path, such as an escaped '/'.
type URL struct {
	DID
	Path     string
	RawPath  string
	Query    []QueryParam
	Fragment string
}

// ParseURL parses a DID URL.
func ParseURL(s string) (URL, error) {
	rest := s
	var u URL

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		frag, err := url.PathUnescape(rest[i+1:])
		if err != nil {
			return URL{}, newParseError(KindInvalidURL, s, "fragment: "+err.Error())
		}
		u.Fragment = frag
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q, err := parseQuery(rest[i+1:])
		if err != nil {
			return URL{}, newParseError(KindInvalidURL, s, "query: "+err.Error())
		}
		u.Query = q
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		p, err := url.PathUnescape(rest[i:])
		if err != nil {
			return URL{}, newParseError(KindInvalidURL, s, "path: "+err.Error())
		}
		u.Path = p
		if raw := rest[i:]; escape(p, pathChars) != raw {
			u.RawPath = raw
		}
		rest = rest[:i]
	}

	d, err := parseDID(rest)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Input = s
		}
		return URL{}, err
	}
	u.DID = d

	return u, nil
}

// ParseReference parses ref relative to base. A reference starting with '#'
// becomes a fragment of base; anything else must be an absolute DID URL.
func ParseReference(base DID, ref string) (URL, error) {
	if strings.HasPrefix(ref, "#") {
		frag, err := url.PathUnescape(ref[1:])
		if err != nil {
			return URL{}, newParseError(KindInvalidURL, ref, "fragment: "+err.Error())
		}
		return URL{DID: base, Fragment: frag}, nil
	}
	return ParseURL(ref)
}

func parseQuery(raw string) ([]QueryParam, error) {
	if raw == "" {
		return nil, nil
	}
	var params []QueryParam
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.PathUnescape(k)
		if err != nil {
			return nil, err
		}
		val, err := url.PathUnescape(v)
		if err != nil {
			return nil, err
		}
		params = append(params, QueryParam{Key: key, Value: val})
	}
	return params, nil
}

// String formats the URL, percent-encoding path, query and fragment.
func (u URL) String() string {
	var b strings.Builder
	b.WriteString(u.DID.String())
	b.WriteString(u.EscapedPath())
	if len(u.Query) > 0 {
		b.WriteByte('?')
		for i, p := range u.Query {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(p.Key, queryChars))
			b.WriteByte('=')
			b.WriteString(escape(p.Value, queryChars))
		}
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(escape(u.Fragment, fragmentChars))
	}
	return b.String()
}

// EscapedPath returns the encoded path. RawPath is used when it still
// decodes to Path.
func (u URL) EscapedPath() string {
	if u.RawPath != "" {
		if p, err := url.PathUnescape(u.RawPath); err == nil && p == u.Path {
			return u.RawPath
		}
	}
	return escape(u.Path, pathChars)
}

// Segments returns the decoded path segments. An escaped '/' stays inside
// its segment.
func (u URL) Segments() []string {
	escaped := u.EscapedPath()
	if escaped == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(escaped, "/"), "/")
	for i, part := range parts {
		if p, err := url.PathUnescape(part); err == nil {
			parts[i] = p
		}
	}
	return parts
}

// IsBare reports whether u has no path, query or fragment.
func (u URL) IsBare() bool {
	return u.Path == "" && len(u.Query) == 0 && u.Fragment == ""
}

// QueryValue returns the first value for key.
func (u URL) QueryValue(key string) (string, bool) {
	for _, p := range u.Query {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// WithFragment returns a copy of u carrying fragment f.
func (u URL) WithFragment(f string) URL {
	u.Query = append([]QueryParam(nil), u.Query...)
	u.Fragment = f
	return u
}

// Equal reports whether u and o denote the same DID URL.
func (u URL) Equal(o URL) bool {
	if u.DID != o.DID || u.Path != o.Path || u.Fragment != o.Fragment || len(u.Query) != len(o.Query) {
		return false
	}
	if !slices.Equal(u.Segments(), o.Segments()) {
		return false
	}
	for i := range u.Query {
		if u.Query[i] != o.Query[i] {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (u URL) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URL) UnmarshalText(text []byte) error {
	parsed, err := ParseURL(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

type charClass int

const (
	pathChars charClass = iota
	queryChars
	fragmentChars
)

func allowed(c byte, class charClass) bool {
	if isAlphaNum(c) {
		return true
	}
	switch c {
	case '-', '.', '_', '~', '!', '$', '\'', '(', ')', '*', '+', ',', ';', ':', '@':
		return true
	case '/':
		return true
	case '?':
		return class != pathChars
	case '&', '=':
		return class != queryChars
	}
	return false
}

func escape(s string, class charClass) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if allowed(c, class) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}
