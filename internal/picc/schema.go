package picc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://notary.local/schema/picc-1.0.json"

//go:embed schema/picc-1.0.json
var schemaJSON []byte

// SchemaDocument returns the embedded JSON Schema for PICC-1.0 submissions.
func SchemaDocument() []byte {
	return bytes.Clone(schemaJSON)
}

// Schema is the compiled structural contract. It rejects unknown properties
// and wrong JSON types that the rule pass cannot see after decoding.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema compiles the embedded PICC-1.0 schema.
func CompileSchema() (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load picc schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile picc schema: %w", err)
	}

	return &Schema{compiled: compiled}, nil
}

// Validate checks a raw JSON document. Failures are returned as a
// *ValidationError with a single StructureInvalid violation.
func (s *Schema) Validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := s.compiled.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepest(ve)
			return &ValidationError{Violations: []Violation{{
				Kind:    StructureInvalid,
				Field:   pointerToField(leaf.InstanceLocation),
				Message: leaf.Message,
			}}}
		}
		return err
	}
	return nil
}

func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// pointerToField converts "/decision/premises/0/text" to "decision.premises[0].text".
func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return "$"
	}

	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
