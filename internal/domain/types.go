// Package domain contains core business entities and types for the clinical
// scribe safety gate: the deterministic checks that decide whether
// AI-generated clinical text may be shown to a clinician or persisted.
//
// The gate performs lexical and structural checks only. It never interprets
// clinical meaning and never rewrites text; a candidate document is either
// accepted verbatim or rejected with a specific reason.
package domain

import (
	"errors"
	"fmt"
)

// Language identifies the locale a candidate document declares itself to be
// written in. The set is closed: phrase lists and disclaimers exist for
// exactly these languages, and a document declaring anything else is
// malformed input.
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
	LanguageFR Language = "fr"
	LanguagePT Language = "pt"
)

// Languages lists every supported language. Policy loading iterates this set
// to verify full population of phrase lists and disclaimers at startup.
func Languages() []Language {
	return []Language{LanguageEN, LanguageES, LanguageFR, LanguagePT}
}

// DocumentKind identifies the artifact type of a candidate document. Each
// kind owns its own closed schema and its own forbidden-phrase vocabulary.
type DocumentKind string

const (
	// KindImagingFindings is a structured description of an imaging study.
	KindImagingFindings DocumentKind = "IMAGING_FINDINGS"

	// KindLabResults is a structured extraction of laboratory values.
	KindLabResults DocumentKind = "LAB_RESULTS"

	// KindSOAPNote is a structured clinical note in SOAP format.
	KindSOAPNote DocumentKind = "SOAP_NOTE"
)

// DocumentKinds lists every supported document kind.
func DocumentKinds() []DocumentKind {
	return []DocumentKind{KindImagingFindings, KindLabResults, KindSOAPNote}
}

// ReviewStatus tracks a validated document through the human review gate.
// Transitions are strictly forward: PENDING_REVIEW -> REVIEWED -> SIGNED.
// SIGNED is terminal; corrections to a signed document are separate
// addendum records, never edits.
type ReviewStatus string

const (
	StatusPendingReview ReviewStatus = "PENDING_REVIEW"
	StatusReviewed      ReviewStatus = "REVIEWED"
	StatusSigned        ReviewStatus = "SIGNED"
)

// Validation errors for closed enumerations.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidLanguage     = errors.New("unsupported language")
	ErrInvalidDocumentKind = errors.New("unsupported document kind")
	ErrInvalidReviewStatus = errors.New("invalid review status")
)

// IsValid reports whether the language is one of the supported locales.
func (l Language) IsValid() bool {
	switch l {
	case LanguageEN, LanguageES, LanguageFR, LanguagePT:
		return true
	default:
		return false
	}
}

// String returns the language code.
func (l Language) String() string {
	return string(l)
}

// ParseLanguage converts a declared language tag into a Language.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return l, nil
}

// IsValid reports whether the kind is one of the supported artifact types.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindImagingFindings, KindLabResults, KindSOAPNote:
		return true
	default:
		return false
	}
}

// String returns the kind tag.
func (k DocumentKind) String() string {
	return string(k)
}

// ParseDocumentKind converts a declared kind tag into a DocumentKind.
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentKind, s)
	}
	return k, nil
}

// IsValid reports whether the status is a known review state.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusPendingReview, StatusReviewed, StatusSigned:
		return true
	default:
		return false
	}
}

// String returns the status tag.
func (s ReviewStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the gate permits moving from s to next.
// Only the two forward single-step transitions exist; everything else,
// including skipping acknowledgment and touching a signed document, is
// rejected.
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	switch {
	case s == StatusPendingReview && next == StatusReviewed:
		return true
	case s == StatusReviewed && next == StatusSigned:
		return true
	default:
		return false
	}
}

// LogFields returns structured logging fields for audit trails.
func (s ReviewStatus) LogFields() map[string]any {
	return map[string]any{
		"review_status": string(s),
		"is_terminal":   s == StatusSigned,
	}
}
