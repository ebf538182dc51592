// Package pipeline orchestrates the safety checks on a candidate document
// in a fixed, fail-fast order: schema, disclaimer, forbidden-phrase scan.
//
// Pipeline.Validate is the only public entry point; ValidatedDocument has no
// exported constructor and no other code path can produce one, so holding a
// *ValidatedDocument is proof that every check passed.
//
// Validation is a synchronous, side-effect-free computation over immutable
// inputs. The only shared state is the compiled policy set, built once at
// startup and never mutated, so Validate may be called concurrently from any
// number of goroutines without coordination.
package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/normalize"
	"github.com/scribe-safety-gate/internal/policy"
	"github.com/scribe-safety-gate/internal/schema"
)

// ValidatedDocument is a candidate document that passed every check. The
// payload is known schema-conformant and its free-text fields are known
// clean. Fields are unexported; only this package constructs the type.
type ValidatedDocument struct {
	payload  domain.Payload
	kind     domain.DocumentKind
	language domain.Language
}

// Payload returns the schema-conformant structured payload.
func (d *ValidatedDocument) Payload() domain.Payload {
	return d.payload
}

// Kind returns the document kind.
func (d *ValidatedDocument) Kind() domain.DocumentKind {
	return d.kind
}

// Language returns the document language.
func (d *ValidatedDocument) Language() domain.Language {
	return d.language
}

// Pipeline runs the safety checks. Construct once with the compiled policy
// set and share freely.
type Pipeline struct {
	policies  *policy.Set
	validator *schema.Validator
	logger    *logrus.Logger
}

// New creates a validation pipeline. The policy set is dependency-injected
// rather than read from a process-wide singleton so tests can run the
// pipeline against alternate phrase tables.
func New(policies *policy.Set, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		policies:  policies,
		validator: schema.NewValidator(),
		logger:    logger,
	}
}

// Validate runs the fixed check sequence on a candidate document and either
// produces a ValidatedDocument or the single ValidationError that aborted
// it. The pipeline never retries and never partially accepts: one failure
// anywhere rejects the whole document.
//
// Ordering rationale: structure first because it is cheapest and a
// malformed document makes every later check meaningless; disclaimer before
// phrase scanning because a missing disclaimer is itself diagnostic of a
// degenerate generation and deserves its own variant rather than being
// buried behind a phrase match.
func (p *Pipeline) Validate(doc domain.CandidateDocument) (*ValidatedDocument, *domain.ValidationError) {
	started := time.Now()

	if !doc.Language.IsValid() {
		return nil, domain.NewMalformedInput("unsupported language " + string(doc.Language))
	}
	if !doc.Kind.IsValid() {
		return nil, domain.NewMalformedInput("unsupported document kind " + string(doc.Kind))
	}

	// Step 1: structural validation.
	payload, verr := p.validator.Validate(doc.RawText, doc.Kind)
	if verr != nil {
		p.logRejection(doc, verr, started)
		return nil, verr
	}

	// Step 2: exact disclaimer match.
	disclaimer, _ := payload.StringField(schema.DisclaimerField)
	if !p.policies.DisclaimerMatches(disclaimer, doc.Language, doc.Kind) {
		verr := domain.NewMissingDisclaimer()
		p.logRejection(doc, verr, started)
		return nil, verr
	}

	// Step 3: forbidden-phrase scan over the kind's enumerated free-text
	// fields. Normalization is computed once per field and discarded with
	// the document.
	for _, field := range p.validator.FreeTextFields(doc.Kind, payload) {
		nt := normalize.Normalize(field.Value)
		if match := p.policies.MatchPhrase(nt, doc.Language, doc.Kind); match != nil {
			verr := domain.NewForbiddenPhrase(field.Path, match.Canonical)
			p.logRejection(doc, verr, started)
			return nil, verr
		}
	}

	p.logger.WithFields(logrus.Fields{
		"kind":        doc.Kind.String(),
		"language":    doc.Language.String(),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Document passed validation")

	return &ValidatedDocument{
		payload:  payload,
		kind:     doc.Kind,
		language: doc.Language,
	}, nil
}

func (p *Pipeline) logRejection(doc domain.CandidateDocument, verr *domain.ValidationError, started time.Time) {
	fields := logrus.Fields{
		"kind":        doc.Kind.String(),
		"language":    doc.Language.String(),
		"duration_ms": time.Since(started).Milliseconds(),
	}
	for k, v := range verr.LogFields() {
		fields[k] = v
	}
	p.logger.WithFields(fields).Info("Document rejected")
}
