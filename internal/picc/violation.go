package picc

import (
	"fmt"
	"strings"
)

// Kind classifies a validation failure. Each kind maps to one wire code.
type Kind int

const (
	SchemaVersionUnsupported Kind = iota + 1
	NonceFormatInvalid
	FieldLengthViolation
	ConfidenceEnumInvalid
	PremiseTypeInvalid
	FactEvidenceInsufficient
	EvidenceNotHTTPS
	FalsifierLengthInvalid
	StructureInvalid
)

var kindNames = map[Kind]string{
	SchemaVersionUnsupported: "SchemaVersionUnsupported",
	NonceFormatInvalid:       "NonceFormatInvalid",
	FieldLengthViolation:     "FieldLengthViolation",
	ConfidenceEnumInvalid:    "ConfidenceEnumInvalid",
	PremiseTypeInvalid:       "PremiseTypeInvalid",
	FactEvidenceInsufficient: "FactEvidenceInsufficient",
	EvidenceNotHTTPS:         "EvidenceNotHttps",
	FalsifierLengthInvalid:   "FalsifierLengthInvalid",
	StructureInvalid:         "StructureInvalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Violation is a single failed rule.
type Violation struct {
	Kind    Kind
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found in one pass.
// The first violation determines the reported kind.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// First returns the first violation.
func (e *ValidationError) First() Violation {
	return e.Violations[0]
}
