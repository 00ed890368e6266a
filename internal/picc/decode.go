package picc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates the body is not valid JSON.
	ErrMalformed = errors.New("malformed json")
	// ErrNotObject indicates the body is valid JSON but not an object.
	ErrNotObject = errors.New("payload must be a json object")
)

// Decode parses a raw submission body.
// A JSON value of the wrong type for a field is reported as a
// StructureInvalid *ValidationError rather than a malformed body.
func Decode(raw []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, ErrMalformed
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{Violations: []Violation{{
				Kind:    StructureInvalid,
				Field:   typeErr.Field,
				Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}}}
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &p, nil
}
