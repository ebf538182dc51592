package domain

import "fmt"

// ValidationCode identifies which check rejected a candidate document.
// The set is closed; every rejection carries exactly one code.
type ValidationCode string

const (
	// CodeMalformedInput means the raw text did not decode into a JSON
	// object at all.
	CodeMalformedInput ValidationCode = "MALFORMED_INPUT"

	// CodeSchemaViolation means the decoded structure broke the kind's
	// closed schema: a required key missing, an unrecognized key present,
	// a wrong value type, or a nested key outside its allow-list.
	CodeSchemaViolation ValidationCode = "SCHEMA_VIOLATION"

	// CodeMissingDisclaimer means the mandatory disclaimer field was absent
	// or not a character-for-character match for the required statement.
	CodeMissingDisclaimer ValidationCode = "MISSING_OR_MISMATCHED_DISCLAIMER"

	// CodeForbiddenPhrase means a forbidden phrase for the document's
	// language and kind was detected in a free-text field, possibly in an
	// obfuscated form.
	CodeForbiddenPhrase ValidationCode = "FORBIDDEN_PHRASE_DETECTED"
)

// ValidationError is the single error type returned by the validation
// pipeline. Exactly one code applies per failure; the pipeline stops at the
// first failure rather than accumulating, keeping error semantics auditable.
//
// Field and Phrase are populated only for the codes that carry them:
// Field for SCHEMA_VIOLATION and FORBIDDEN_PHRASE_DETECTED, Phrase for
// FORBIDDEN_PHRASE_DETECTED (the canonical phrase, not the obfuscated text
// that matched it).
type ValidationError struct {
	Code   ValidationCode `json:"code"`
	Field  string         `json:"field,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Phrase string         `json:"phrase,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeSchemaViolation:
		return fmt.Sprintf("schema violation at %q: %s", e.Field, e.Reason)
	case CodeForbiddenPhrase:
		return fmt.Sprintf("forbidden phrase %q detected in field %q", e.Phrase, e.Field)
	case CodeMissingDisclaimer:
		return "missing or mismatched disclaimer"
	default:
		return fmt.Sprintf("malformed input: %s", e.Reason)
	}
}

// NewMalformedInput creates a ValidationError for undecodable raw text.
func NewMalformedInput(reason string) *ValidationError {
	return &ValidationError{Code: CodeMalformedInput, Reason: reason}
}

// NewSchemaViolation creates a ValidationError for a structural failure on
// the named field.
func NewSchemaViolation(field, reason string) *ValidationError {
	return &ValidationError{Code: CodeSchemaViolation, Field: field, Reason: reason}
}

// NewMissingDisclaimer creates a ValidationError for an absent or inexact
// disclaimer.
func NewMissingDisclaimer() *ValidationError {
	return &ValidationError{Code: CodeMissingDisclaimer}
}

// NewForbiddenPhrase creates a ValidationError naming the offending field
// and the canonical phrase that matched.
func NewForbiddenPhrase(field, phrase string) *ValidationError {
	return &ValidationError{Code: CodeForbiddenPhrase, Field: field, Phrase: phrase}
}

// LogFields returns structured logging fields for the audit trail. The
// detailed variant is logged, never surfaced to end users in production;
// leaking the matched phrase would hand the model a circumvention hint.
func (e *ValidationError) LogFields() map[string]any {
	return map[string]any{
		"validation_code": string(e.Code),
		"field":           e.Field,
		"reason":          e.Reason,
		"matched_phrase":  e.Phrase,
	}
}

// PublicMessage is the single message production deployments show for any
// rejection, regardless of variant.
const PublicMessage = "could not produce a compliant document, please document manually"
