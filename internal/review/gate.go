package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/pipeline"
)

// Gate enforces the review lifecycle on top of a Store. Reads go through a
// small LRU cache; any write invalidates the cached entry so a follow-up
// read always reflects the stored state.
type Gate struct {
	store  Store
	cache  *lru.Cache[string, *Record]
	logger *logrus.Logger
	now    func() time.Time
}

// NewGate creates a review gate. cacheSize <= 0 disables the read cache.
func NewGate(store Store, cacheSize int, logger *logrus.Logger) (*Gate, error) {
	g := &Gate{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, *Record](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create review cache: %w", err)
		}
		g.cache = cache
	}
	return g, nil
}

// Register stores a freshly validated document as PENDING_REVIEW and returns
// its record. This is the only entry point into the gate: a document that
// did not pass validation cannot be registered because a
// *pipeline.ValidatedDocument cannot be constructed any other way.
func (g *Gate) Register(ctx context.Context, doc *pipeline.ValidatedDocument, policyVersion string) (*Record, error) {
	payload, err := doc.Payload().MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	now := g.now().UTC()
	record := &Record{
		ID:            uuid.New().String(),
		Kind:          doc.Kind(),
		Language:      doc.Language(),
		Status:        domain.StatusPendingReview,
		Payload:       payload,
		PolicyVersion: policyVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := g.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store review record: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"document_id": record.ID,
		"kind":        record.Kind,
		"language":    record.Language,
		"status":      record.Status,
	}).Info("Document registered for review")

	return record, nil
}

// Get returns the current review record for a document.
func (g *Gate) Get(ctx context.Context, id string) (*Record, error) {
	if g.cache != nil {
		if record, ok := g.cache.Get(id); ok {
			return record, nil
		}
	}
	record, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Add(id, record)
	}
	return record, nil
}

// Acknowledge moves a pending document to REVIEWED on behalf of reviewer.
func (g *Gate) Acknowledge(ctx context.Context, id, reviewer string) (*Record, error) {
	err := g.store.Transition(ctx, id, domain.StatusPendingReview, domain.StatusReviewed, reviewer, g.now().UTC())
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			switch conflict.Current {
			case domain.StatusReviewed:
				return nil, ErrAlreadyReviewed
			case domain.StatusSigned:
				return nil, ErrAlreadySigned
			}
		}
		return nil, err
	}
	return g.afterTransition(ctx, id, reviewer, "Document acknowledged")
}

// Sign moves a reviewed document to SIGNED on behalf of signer. Signing a
// document that was never acknowledged fails with ErrNotReviewed.
func (g *Gate) Sign(ctx context.Context, id, signer string) (*Record, error) {
	err := g.store.Transition(ctx, id, domain.StatusReviewed, domain.StatusSigned, signer, g.now().UTC())
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			switch conflict.Current {
			case domain.StatusPendingReview:
				return nil, ErrNotReviewed
			case domain.StatusSigned:
				return nil, ErrAlreadySigned
			}
		}
		return nil, err
	}
	return g.afterTransition(ctx, id, signer, "Document signed")
}

// AddAddendum attaches a correction to a signed document.
func (g *Gate) AddAddendum(ctx context.Context, documentID, author, body string) (*Addendum, error) {
	if body == "" {
		return nil, errors.New("addendum body must not be empty")
	}
	addendum := &Addendum{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Author:     author,
		Body:       body,
		CreatedAt:  g.now().UTC(),
	}
	if err := g.store.AddAddendum(ctx, addendum); err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"addendum_id": addendum.ID,
		"author":      author,
	}).Info("Addendum recorded")

	return addendum, nil
}

// Addenda lists the addenda of a document, oldest first.
func (g *Gate) Addenda(ctx context.Context, documentID string) ([]*Addendum, error) {
	return g.store.ListAddenda(ctx, documentID)
}

func (g *Gate) afterTransition(ctx context.Context, id, actor, message string) (*Record, error) {
	if g.cache != nil {
		g.cache.Remove(id)
	}
	record, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	g.logger.WithFields(logrus.Fields{
		"document_id": record.ID,
		"status":      record.Status,
		"actor":       actor,
	}).Info(message)
	return record, nil
}
