package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/scribe-safety-gate/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL review store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL review store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Create inserts a new review record.
func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_records (
			id, kind, language, status, payload, policy_version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		record.ID,
		string(record.Kind),
		string(record.Language),
		string(record.Status),
		record.Payload,
		record.PolicyVersion,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a review record by document ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, language, status, payload, policy_version,
			reviewed_by, reviewed_at, signed_by, signed_at,
			created_at, updated_at
		FROM review_records
		WHERE id = $1
	`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// Transition atomically advances a record from one status to the next using
// a conditional UPDATE keyed on the expected current status.
func (s *PostgresStore) Transition(ctx context.Context, id string, from, to domain.ReviewStatus, actor string, at time.Time) error {
	var result sql.Result
	var err error

	switch to {
	case domain.StatusReviewed:
		result, err = s.db.ExecContext(ctx, `
			UPDATE review_records
			SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3
			WHERE id = $4 AND status = $5
		`, string(to), actor, at, id, string(from))
	case domain.StatusSigned:
		result, err = s.db.ExecContext(ctx, `
			UPDATE review_records
			SET status = $1, signed_by = $2, signed_at = $3, updated_at = $3
			WHERE id = $4 AND status = $5
		`, string(to), actor, at, id, string(from))
	default:
		return fmt.Errorf("unsupported transition target: %s", to)
	}
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx,
		"SELECT status FROM review_records WHERE id = $1", id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	return &ConflictError{
		DocumentID: id,
		Current:    domain.ReviewStatus(current),
		Attempted:  to,
	}
}

// AddAddendum inserts an addendum when the parent document is signed.
func (s *PostgresStore) AddAddendum(ctx context.Context, addendum *Addendum) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO addenda (id, document_id, author, body, created_at)
		SELECT $1, id, $2, $3, $4
		FROM review_records
		WHERE id = $5 AND status = $6
	`,
		addendum.ID,
		addendum.Author,
		addendum.Body,
		addendum.CreatedAt,
		addendum.DocumentID,
		string(domain.StatusSigned),
	)
	if err != nil {
		return fmt.Errorf("failed to insert addendum: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx,
		"SELECT status FROM review_records WHERE id = $1", addendum.DocumentID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	return ErrNotSigned
}

// ListAddenda returns the addenda of a document, oldest first.
func (s *PostgresStore) ListAddenda(ctx context.Context, documentID string) ([]*Addendum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, author, body, created_at
		FROM addenda
		WHERE document_id = $1
		ORDER BY created_at ASC, id ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addenda: %w", err)
	}
	defer rows.Close()

	var addenda []*Addendum
	for rows.Next() {
		a := &Addendum{}
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Author, &a.Body, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan addendum: %w", err)
		}
		addenda = append(addenda, a)
	}
	return addenda, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
