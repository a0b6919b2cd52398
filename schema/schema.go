// Package schema checks the structure of DID documents and verifiable-log
// entries before they are interpreted.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema: document does not match schema")

var (
	//go:embed schemas/did-document.json
	didDocumentSchema string
	//go:embed schemas/log-entry.json
	logEntrySchema string
)

type compiled struct {
	once   sync.Once
	source string
	schema *gojsonschema.Schema
	err    error
}

func (c *compiled) get() (*gojsonschema.Schema, error) {
	c.once.Do(func() {
		c.schema, c.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(c.source))
	})
	return c.schema, c.err
}

var (
	documentSchema = &compiled{source: didDocumentSchema}
	entrySchema    = &compiled{source: logEntrySchema}
)

// ValidateDocument checks raw JSON against the DID document schema.
func ValidateDocument(raw []byte) error {
	return validate(documentSchema, raw)
}

// ValidateLogEntry checks one did:webvh log line against the entry schema.
func ValidateLogEntry(raw []byte) error {
	return validate(entrySchema, raw)
}

func validate(c *compiled, raw []byte) error {
	s, err := c.get()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}
