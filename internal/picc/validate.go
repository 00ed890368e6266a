package picc

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field bounds, counted in Unicode code points.
const (
	NonceMin      = 8
	NonceMax      = 128
	QuestionMin   = 3
	QuestionMax   = 400
	ConclusionMin = 1
	ConclusionMax = 400
	FalsifierMin  = 10
	FalsifierMax  = 1000
	ActorMax      = 120
	ContextMax    = 200
	PremisesMin   = 1

	// EvidenceScheme is matched case-sensitively.
	EvidenceScheme = "https://"
)

// CheckNonce reports a NonceFormatInvalid *ValidationError when nonce is
// outside the accepted length. The gateway runs it before registering the
// nonce, ahead of the full Validate pass.
func CheckNonce(nonce string) error {
	var v validator
	v.nonce(nonce)
	return v.err()
}

// Validate checks p against the PICC-1.0 rules and returns nil or a *ValidationError.
//
// Rules run in a fixed order: schema version, nonce, field bounds, enumerations,
// then per-premise evidence rules. Every violation is collected.
func Validate(p *Payload) error {
	var v validator

	if p.SchemaVersion != SchemaVersion {
		v.add(SchemaVersionUnsupported, "schema_version",
			"unsupported schema version %q, expected %q", p.SchemaVersion, SchemaVersion)
	}

	v.nonce(p.Nonce)

	d := &p.Decision
	v.length(FieldLengthViolation, "decision.question", d.Question, QuestionMin, QuestionMax)
	v.length(FieldLengthViolation, "decision.conclusion", d.Conclusion, ConclusionMin, ConclusionMax)
	v.length(FalsifierLengthInvalid, "decision.falsifier", d.Falsifier, FalsifierMin, FalsifierMax)

	if len(d.Premises) < PremisesMin {
		v.add(FieldLengthViolation, "decision.premises",
			"at least %d premise required", PremisesMin)
	}
	for i, premise := range d.Premises {
		if strings.TrimSpace(premise.Text) == "" {
			v.add(FieldLengthViolation, fmt.Sprintf("decision.premises[%d].text", i), "must not be empty")
		}
	}

	if p.Metadata != nil {
		v.length(FieldLengthViolation, "metadata.actor", p.Metadata.Actor, 0, ActorMax)
		v.length(FieldLengthViolation, "metadata.context", p.Metadata.Context, 0, ContextMax)
	}

	if !d.Confidence.Valid() {
		v.add(ConfidenceEnumInvalid, "decision.confidence",
			"%q is not one of LOW, MEDIUM, HIGH", d.Confidence)
	}
	for i, premise := range d.Premises {
		if !premise.Type.Valid() {
			v.add(PremiseTypeInvalid, fmt.Sprintf("decision.premises[%d].type", i),
				"%q is not one of FACT, ASSUMPTION, EXPERT_OPINION", premise.Type)
		}
	}

	for i, premise := range d.Premises {
		validatePremiseEvidence(&v, i, premise)
	}

	return v.err()
}

func validatePremiseEvidence(v *validator, i int, premise Premise) {
	field := fmt.Sprintf("decision.premises[%d].evidence", i)

	if want := premise.Type.MinEvidence(); len(premise.Evidence) < want {
		v.add(FactEvidenceInsufficient, field,
			"%s premise requires at least %d evidence URLs, got %d", premise.Type, want, len(premise.Evidence))
	}

	for j, url := range premise.Evidence {
		if !strings.HasPrefix(url, EvidenceScheme) {
			v.add(EvidenceNotHTTPS, fmt.Sprintf("%s[%d]", field, j),
				"evidence URL must start with %s", EvidenceScheme)
		}
	}
}

type validator struct {
	violations []Violation
}

func (v *validator) add(kind Kind, field, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) nonce(value string) {
	if n := utf8.RuneCountInString(value); n < NonceMin || n > NonceMax {
		v.add(NonceFormatInvalid, "nonce", "length %d outside [%d,%d]", n, NonceMin, NonceMax)
	}
}

func (v *validator) length(kind Kind, field, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	if n < lo || n > hi {
		v.add(kind, field, "length %d outside [%d,%d]", n, lo, hi)
	}
}

func (v *validator) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}
