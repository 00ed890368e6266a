package notarization

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JaimeStill/notary/internal/picc"
)

// Code is a stable wire-level result code.
type Code string

const (
	CodeCreated    Code = "CREATED"
	CodeIdempotent Code = "IDEMPOTENT"

	CodeBadSignature     Code = "BAD_SIG"
	CodeTimestampWindow  Code = "TS_WINDOW"
	CodeNonceReuse       Code = "NONCE_REUSE"
	CodeNonceInvalid     Code = "NONCE_INVALID"
	CodeSchemaVersion    Code = "SCHEMA_VERSION"
	CodeFieldLength      Code = "FIELD_LENGTH"
	CodeConfidence       Code = "CONFIDENCE_INVALID"
	CodePremiseType      Code = "PREMISE_TYPE"
	CodeFactEvidence     Code = "FACT_EVIDENCE"
	CodeEvidenceHTTPS    Code = "EVIDENCE_HTTPS"
	CodeFalsifierLength  Code = "FALSIFIER_LENGTH"
	CodeSchemaInvalid    Code = "SCHEMA_INVALID"
	CodeBadPayload       Code = "BAD_PAYLOAD"
	CodeRateLimit        Code = "RATE_LIMIT"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeWriteFailed      Code = "WRITE_FAILED"
	CodeTimeout          Code = "TIMEOUT"
	CodeInternal         Code = "INTERNAL"
)

// ErrStoreUnavailable indicates the record store could not answer a
// search authoritatively. The submission is safe to retry.
var ErrStoreUnavailable = errors.New("record store unavailable")

var violationCodes = map[picc.Kind]Code{
	picc.SchemaVersionUnsupported: CodeSchemaVersion,
	picc.NonceFormatInvalid:       CodeNonceInvalid,
	picc.FieldLengthViolation:     CodeFieldLength,
	picc.ConfidenceEnumInvalid:    CodeConfidence,
	picc.PremiseTypeInvalid:       CodePremiseType,
	picc.FactEvidenceInsufficient: CodeFactEvidence,
	picc.EvidenceNotHTTPS:         CodeEvidenceHTTPS,
	picc.FalsifierLengthInvalid:   CodeFalsifierLength,
	picc.StructureInvalid:         CodeSchemaInvalid,
}

// Error is a pipeline failure with its wire code and HTTP status.
// Msg is safe to return to clients; Err is for logs only.
type Error struct {
	Code       Code
	Status     int
	Msg        string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the client may resend the same decision
// without changing it.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeStoreUnavailable, CodeWriteFailed, CodeTimeout:
		return true
	}
	return false
}

func fail(code Code, status int, msg string, err error) *Error {
	return &Error{Code: code, Status: status, Msg: msg, Err: err}
}

func violationError(verr *picc.ValidationError) *Error {
	first := verr.First()
	code, ok := violationCodes[first.Kind]
	if !ok {
		code = CodeSchemaInvalid
	}
	return fail(code, http.StatusBadRequest, first.String(), verr)
}

// AsError converts any error into an *Error. Unrecognized errors become
// INTERNAL with a generic message.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var verr *picc.ValidationError
	if errors.As(err, &verr) && len(verr.Violations) > 0 {
		return violationError(verr)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fail(CodeTimeout, http.StatusGatewayTimeout, "request deadline exceeded", err)
	}

	return fail(CodeInternal, http.StatusInternalServerError, "internal error", err)
}
