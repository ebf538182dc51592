package review

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-safety-gate/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRecord() *Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &Record{
		ID:            uuid.New().String(),
		Kind:          domain.KindImagingFindings,
		Language:      domain.LanguageEN,
		Status:        domain.StatusPendingReview,
		Payload:       []byte(`{"study_type":"chest_xray"}`),
		PolicyVersion: "2026.08",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := newTestRecord()
	require.NoError(t, store.Create(ctx, record))

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, domain.KindImagingFindings, got.Kind)
	assert.Equal(t, domain.LanguageEN, got.Language)
	assert.Equal(t, domain.StatusPendingReview, got.Status)
	assert.Equal(t, record.Payload, got.Payload)
	assert.Equal(t, "2026.08", got.PolicyVersion)
	assert.Nil(t, got.ReviewedAt)
	assert.Nil(t, got.SignedAt)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_FullLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := newTestRecord()
	require.NoError(t, store.Create(ctx, record))

	at := time.Now().UTC().Truncate(time.Second)
	err := store.Transition(ctx, record.ID, domain.StatusPendingReview, domain.StatusReviewed, "dr-lee", at)
	require.NoError(t, err)

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewed, got.Status)
	assert.Equal(t, "dr-lee", got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
	assert.Nil(t, got.SignedAt)

	err = store.Transition(ctx, record.ID, domain.StatusReviewed, domain.StatusSigned, "dr-lee", at.Add(time.Minute))
	require.NoError(t, err)

	got, err = store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSigned, got.Status)
	assert.Equal(t, "dr-lee", got.SignedBy)
	require.NotNil(t, got.SignedAt)
}

func TestSQLiteStore_TransitionConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	record := newTestRecord()
	require.NoError(t, store.Create(ctx, record))

	// Skipping the review step must not succeed.
	err := store.Transition(ctx, record.ID, domain.StatusReviewed, domain.StatusSigned, "dr-lee", at)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusPendingReview, conflict.Current)
	assert.Equal(t, domain.StatusSigned, conflict.Attempted)

	require.NoError(t, store.Transition(ctx, record.ID, domain.StatusPendingReview, domain.StatusReviewed, "dr-lee", at))

	// Acknowledging twice finds the record already moved on.
	err = store.Transition(ctx, record.ID, domain.StatusPendingReview, domain.StatusReviewed, "dr-kim", at)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusReviewed, conflict.Current)

	require.NoError(t, store.Transition(ctx, record.ID, domain.StatusReviewed, domain.StatusSigned, "dr-lee", at))

	// Signed is terminal.
	err = store.Transition(ctx, record.ID, domain.StatusReviewed, domain.StatusSigned, "dr-kim", at)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusSigned, conflict.Current)
}

func TestSQLiteStore_TransitionUnknownDocument(t *testing.T) {
	store := newTestStore(t)

	err := store.Transition(context.Background(), uuid.New().String(),
		domain.StatusPendingReview, domain.StatusReviewed, "dr-lee", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_Addenda(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	record := newTestRecord()
	require.NoError(t, store.Create(ctx, record))

	// Addenda are only allowed on signed documents.
	err := store.AddAddendum(ctx, &Addendum{
		ID:         uuid.New().String(),
		DocumentID: record.ID,
		Author:     "dr-lee",
		Body:       "correction to study technique",
		CreatedAt:  at,
	})
	assert.ErrorIs(t, err, ErrNotSigned)

	require.NoError(t, store.Transition(ctx, record.ID, domain.StatusPendingReview, domain.StatusReviewed, "dr-lee", at))
	require.NoError(t, store.Transition(ctx, record.ID, domain.StatusReviewed, domain.StatusSigned, "dr-lee", at))

	first := &Addendum{
		ID:         uuid.New().String(),
		DocumentID: record.ID,
		Author:     "dr-lee",
		Body:       "correction to study technique",
		CreatedAt:  at,
	}
	require.NoError(t, store.AddAddendum(ctx, first))

	second := &Addendum{
		ID:         uuid.New().String(),
		DocumentID: record.ID,
		Author:     "dr-kim",
		Body:       "additional comparison noted",
		CreatedAt:  at.Add(time.Minute),
	}
	require.NoError(t, store.AddAddendum(ctx, second))

	addenda, err := store.ListAddenda(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, addenda, 2)
	assert.Equal(t, first.ID, addenda[0].ID)
	assert.Equal(t, second.ID, addenda[1].ID)
	assert.Equal(t, "correction to study technique", addenda[0].Body)
}

func TestSQLiteStore_AddendumUnknownDocument(t *testing.T) {
	store := newTestStore(t)

	err := store.AddAddendum(context.Background(), &Addendum{
		ID:         uuid.New().String(),
		DocumentID: uuid.New().String(),
		Author:     "dr-lee",
		Body:       "orphan",
		CreatedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConflictErrorMessage(t *testing.T) {
	err := &ConflictError{
		DocumentID: "abc",
		Current:    domain.StatusSigned,
		Attempted:  domain.StatusReviewed,
	}
	assert.Equal(t, "document abc is SIGNED, cannot transition to REVIEWED", err.Error())
	assert.True(t, errors.As(error(err), new(*ConflictError)))
}
