// Package jsoncanonicalizer implements the JSON Canonicalization Scheme
// (RFC 8785). Objects are emitted with members sorted by the UTF-16 code
// units of their names, strings use the minimal escape set and numbers are
// serialized the way ECMAScript formats an IEEE-754 double.
package jsoncanonicalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	ErrDuplicateKey = errors.New("jsoncanonicalizer: duplicate object key")
	ErrTrailingData = errors.New("jsoncanonicalizer: trailing data after JSON value")
)

// Transform converts a JSON text into its canonical form. The output is
// byte-for-byte stable for inputs that differ only in whitespace, member
// order or number spelling.
func Transform(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out bytes.Buffer
	if err := transformValue(dec, &out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return out.Bytes(), nil
}

// Marshal encodes v with encoding/json and canonicalizes the result.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsoncanonicalizer: marshal: %w", err)
	}
	return Transform(raw)
}

func transformValue(dec *json.Decoder, out *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("jsoncanonicalizer: %w", err)
	}
	return transformToken(dec, tok, out)
}

func transformToken(dec *json.Decoder, tok json.Token, out *bytes.Buffer) error {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return transformObject(dec, out)
		case '[':
			return transformArray(dec, out)
		}
		return fmt.Errorf("jsoncanonicalizer: unexpected delimiter %q", v)
	case string:
		writeString(out, v)
	case json.Number:
		s, err := formatNumber(v)
		if err != nil {
			return err
		}
		out.WriteString(s)
	case bool:
		if v {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case nil:
		out.WriteString("null")
	default:
		return fmt.Errorf("jsoncanonicalizer: unexpected token %T", tok)
	}
	return nil
}

type member struct {
	key   string
	sort  []uint16
	value []byte
}

func transformObject(dec *json.Decoder, out *bytes.Buffer) error {
	var members []member
	seen := map[string]struct{}{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("jsoncanonicalizer: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("jsoncanonicalizer: object key is %T", tok)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}

		var value bytes.Buffer
		if err := transformValue(dec, &value); err != nil {
			return err
		}
		members = append(members, member{key: key, sort: utf16.Encode([]rune(key)), value: value.Bytes()})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("jsoncanonicalizer: %w", err)
	}

	sort.Slice(members, func(i, j int) bool {
		return lessUTF16(members[i].sort, members[j].sort)
	})

	out.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			out.WriteByte(',')
		}
		writeString(out, m.key)
		out.WriteByte(':')
		out.Write(m.value)
	}
	out.WriteByte('}')
	return nil
}

func transformArray(dec *json.Decoder, out *bytes.Buffer) error {
	out.WriteByte('[')
	first := true
	for dec.More() {
		if !first {
			out.WriteByte(',')
		}
		first = false
		if err := transformValue(dec, out); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("jsoncanonicalizer: %w", err)
	}
	out.WriteByte(']')
	return nil
}

func lessUTF16(a, b []uint16) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func writeString(out *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	out.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			out.WriteRune(r)
			i += size
			continue
		}
		switch c {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\b':
			out.WriteString(`\b`)
		case '\f':
			out.WriteString(`\f`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if c < 0x20 {
				out.WriteString(`\u00`)
				out.WriteByte(hex[c>>4])
				out.WriteByte(hex[c&15])
			} else {
				out.WriteByte(c)
			}
		}
		i++
	}
	out.WriteByte('"')
}

func formatNumber(n json.Number) (string, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", fmt.Errorf("jsoncanonicalizer: number %s: %w", n, err)
	}
	return FormatFloat(f)
}
