// Package review implements the human-review gate. A validated document
// enters PENDING_REVIEW and moves only forward: an explicit clinician
// acknowledgment takes it to REVIEWED, an explicit sign action takes it to
// SIGNED. No transition skips a step or moves backward, and SIGNED is
// terminal: later corrections are addendum records linked to the signed
// document, never edits to it.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scribe-safety-gate/internal/domain"
)

// Gate transition errors. Each illegal transition has a dedicated error so
// callers can distinguish a skipped acknowledgment from a double sign.
var (
	ErrAlreadyReviewed = errors.New("document has already been acknowledged")
	ErrNotReviewed     = errors.New("document has not been acknowledged")
	ErrAlreadySigned   = errors.New("document is already signed")
	ErrNotSigned       = errors.New("addendum requires a signed document")
)

// Record is the persisted review state of one validated document.
type Record struct {
	ID            string              `json:"id"`
	Kind          domain.DocumentKind `json:"kind"`
	Language      domain.Language     `json:"language"`
	Status        domain.ReviewStatus `json:"status"`
	Payload       []byte              `json:"payload"`
	PolicyVersion string              `json:"policy_version"`
	ReviewedBy    string              `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time          `json:"reviewed_at,omitempty"`
	SignedBy      string              `json:"signed_by,omitempty"`
	SignedAt      *time.Time          `json:"signed_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Addendum is a correction or amendment to a signed document. It references
// the signed record and never modifies it.
type Addendum struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConflictError reports a compare-and-swap transition that found the
// document in a different state than required. The store returns it; the
// gate maps it onto the dedicated sentinel errors above.
type ConflictError struct {
	DocumentID string
	Current    domain.ReviewStatus
	Attempted  domain.ReviewStatus
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s is %s, cannot transition to %s",
		e.DocumentID, e.Current, e.Attempted)
}

// Store persists review records and addenda. Transition must be atomic per
// document: two concurrent identical transitions on the same document must
// not both succeed. Implementations achieve this with a conditional UPDATE
// keyed on the expected current status.
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)

	// Transition atomically moves the document from the expected status to
	// the next one, stamping actor and time. Returns domain.ErrNotFound for
	// an unknown document and *ConflictError when the document is not in
	// the expected status.
	Transition(ctx context.Context, id string, from, to domain.ReviewStatus, actor string, at time.Time) error

	// AddAddendum inserts an addendum, succeeding only when the referenced
	// document exists and is signed.
	AddAddendum(ctx context.Context, addendum *Addendum) error
	ListAddenda(ctx context.Context, documentID string) ([]*Addendum, error)

	Close() error
}
