// Package service wires the validation pipeline, review gate and audit
// recorder into the operations exposed by the HTTP, MCP and CLI surfaces.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/audit"
	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/pipeline"
	"github.com/scribe-safety-gate/internal/policy"
	"github.com/scribe-safety-gate/internal/review"
)

// Gatekeeper runs candidate documents through validation and the review
// lifecycle, recording every decision.
type Gatekeeper struct {
	pipeline   *pipeline.Pipeline
	gate       *review.Gate
	recorder   *audit.Recorder
	policies   *policy.Set
	production bool
	logger     *logrus.Logger
	health     func(ctx context.Context) error
}

// New creates a gatekeeper service.
func New(policies *policy.Set, gate *review.Gate, recorder *audit.Recorder, production bool, logger *logrus.Logger) *Gatekeeper {
	return &Gatekeeper{
		pipeline:   pipeline.New(policies, logger),
		gate:       gate,
		recorder:   recorder,
		policies:   policies,
		production: production,
		logger:     logger,
	}
}

// PolicyVersion reports the loaded policy table version.
func (g *Gatekeeper) PolicyVersion() string {
	return g.policies.Version()
}

// SetHealthCheck installs a storage liveness probe reported by Health.
func (g *Gatekeeper) SetHealthCheck(check func(ctx context.Context) error) {
	g.health = check
}

// Health probes the storage backend. Backends without a probe installed
// are always reported healthy.
func (g *Gatekeeper) Health(ctx context.Context) error {
	if g.health == nil {
		return nil
	}
	return g.health(ctx)
}

// Submit validates a candidate document. A document that passes every
// check is registered as PENDING_REVIEW and its record returned. A
// rejection is audited in full detail and returned as a validation error;
// nothing is stored for rejected documents.
func (g *Gatekeeper) Submit(ctx context.Context, doc domain.CandidateDocument, correlationID string) (*review.Record, *domain.ValidationError, error) {
	validated, verr := g.pipeline.Validate(doc)
	if verr != nil {
		g.recorder.Record(ctx, audit.Event{
			Type:          audit.EventRejection,
			CorrelationID: correlationID,
			Kind:          doc.Kind,
			Language:      doc.Language,
			PolicyVersion: g.policies.Version(),
			Code:          verr.Code,
			Field:         verr.Field,
			Reason:        verr.Reason,
			Phrase:        verr.Phrase,
		})
		return nil, verr, nil
	}

	record, err := g.gate.Register(ctx, validated, g.policies.Version())
	if err != nil {
		return nil, nil, err
	}

	g.recorder.Record(ctx, audit.Event{
		Type:          audit.EventAccepted,
		CorrelationID: correlationID,
		DocumentID:    record.ID,
		Kind:          record.Kind,
		Language:      record.Language,
		PolicyVersion: record.PolicyVersion,
	})
	return record, nil, nil
}

// Status returns the review record of a document.
func (g *Gatekeeper) Status(ctx context.Context, id string) (*review.Record, error) {
	return g.gate.Get(ctx, id)
}

// Acknowledge records a clinician's review of a pending document.
func (g *Gatekeeper) Acknowledge(ctx context.Context, id, reviewer, correlationID string) (*review.Record, error) {
	record, err := g.gate.Acknowledge(ctx, id, reviewer)
	if err != nil {
		return nil, err
	}
	g.recorder.Record(ctx, audit.Event{
		Type:          audit.EventAcknowledged,
		CorrelationID: correlationID,
		DocumentID:    record.ID,
		Kind:          record.Kind,
		Language:      record.Language,
		Actor:         reviewer,
		PolicyVersion: record.PolicyVersion,
	})
	return record, nil
}

// Sign finalizes a reviewed document.
func (g *Gatekeeper) Sign(ctx context.Context, id, signer, correlationID string) (*review.Record, error) {
	record, err := g.gate.Sign(ctx, id, signer)
	if err != nil {
		return nil, err
	}
	g.recorder.Record(ctx, audit.Event{
		Type:          audit.EventSigned,
		CorrelationID: correlationID,
		DocumentID:    record.ID,
		Kind:          record.Kind,
		Language:      record.Language,
		Actor:         signer,
		PolicyVersion: record.PolicyVersion,
	})
	return record, nil
}

// AddAddendum attaches a correction to a signed document.
func (g *Gatekeeper) AddAddendum(ctx context.Context, id, author, body, correlationID string) (*review.Addendum, error) {
	addendum, err := g.gate.AddAddendum(ctx, id, author, body)
	if err != nil {
		return nil, err
	}
	g.recorder.Record(ctx, audit.Event{
		Type:          audit.EventAddendum,
		CorrelationID: correlationID,
		DocumentID:    id,
		Actor:         author,
	})
	return addendum, nil
}

// Addenda lists the addenda of a document.
func (g *Gatekeeper) Addenda(ctx context.Context, id string) ([]*review.Addendum, error) {
	return g.gate.Addenda(ctx, id)
}

// RejectionMessage renders a validation error for the caller. Production
// deployments collapse every rejection to the generic refusal so that no
// phrase or field detail leaks to the authoring model; the audit log keeps
// the full detail either way.
func (g *Gatekeeper) RejectionMessage(verr *domain.ValidationError) string {
	if g.production {
		return domain.PublicMessage
	}
	return verr.Error()
}
