// Package picc defines the PICC-1.0 decision payload and its validation rules.
//
// A payload records a reasoning chain of premises, inferences and
// contradictions, ending in a conclusion and the condition that would falsify it.
package picc

// SchemaVersion is the only payload version this gateway accepts.
const SchemaVersion = "PICC-1.0"

// Confidence is the submitter's confidence in a conclusion.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Valid reports whether c is one of the defined levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// PremiseType tags a premise. Evidence rules are dispatched on it.
type PremiseType string

const (
	PremiseFact          PremiseType = "FACT"
	PremiseAssumption    PremiseType = "ASSUMPTION"
	PremiseExpertOpinion PremiseType = "EXPERT_OPINION"
)

// Valid reports whether t is one of the defined premise types.
func (t PremiseType) Valid() bool {
	switch t {
	case PremiseFact, PremiseAssumption, PremiseExpertOpinion:
		return true
	}
	return false
}

// MinEvidence returns the minimum number of evidence URLs required for t.
func (t PremiseType) MinEvidence() int {
	if t == PremiseFact {
		return 2
	}
	return 0
}

// Payload is a signed decision submission.
type Payload struct {
	SchemaVersion string    `json:"schema_version"`
	Timestamp     int64     `json:"ts"`
	Nonce         string    `json:"nonce"`
	Decision      Decision  `json:"decision"`
	Metadata      *Metadata `json:"metadata,omitempty"`
}

// Decision is the reasoning record being notarized.
type Decision struct {
	Question       string     `json:"question"`
	Conclusion     string     `json:"conclusion"`
	Confidence     Confidence `json:"confidence"`
	Premises       []Premise  `json:"premises"`
	Inferences     []string   `json:"inferences,omitempty"`
	Contradictions []string   `json:"contradictions,omitempty"`
	Falsifier      string     `json:"falsifier"`
}

// Premise is one supporting statement.
type Premise struct {
	Type     PremiseType `json:"type"`
	Text     string      `json:"text"`
	Evidence []string    `json:"evidence,omitempty"`
}

// Metadata describes who submitted a decision and in what context.
type Metadata struct {
	Actor   string `json:"actor,omitempty"`
	Context string `json:"context,omitempty"`
}

// Content is the part of a payload that identifies a decision.
// Timestamp and nonce are transport fields and are left out so that
// resubmitting the same decision yields the same content hash.
type Content struct {
	SchemaVersion string    `json:"schema_version"`
	Decision      Decision  `json:"decision"`
	Metadata      *Metadata `json:"metadata,omitempty"`
}

// Content returns the hashable content of p.
func (p *Payload) Content() Content {
	c := Content{
		SchemaVersion: p.SchemaVersion,
		Decision:      p.Decision,
	}
	if p.Metadata != nil && (p.Metadata.Actor != "" || p.Metadata.Context != "") {
		c.Metadata = p.Metadata
	}
	return c
}
