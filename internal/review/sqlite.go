package review

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scribe-safety-gate/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite. It is the
// default backend for single-node deployments.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createReviewSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	record := &Record{}
	var kind, language, status string
	var reviewedAt, signedAt sql.NullTime

	err := s.Scan(
		&record.ID, &kind, &language, &status, &record.Payload,
		&record.PolicyVersion, &record.ReviewedBy, &reviewedAt,
		&record.SignedBy, &signedAt, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = domain.DocumentKind(kind)
	record.Language = domain.Language(language)
	record.Status = domain.ReviewStatus(status)
	if reviewedAt.Valid {
		record.ReviewedAt = &reviewedAt.Time
	}
	if signedAt.Valid {
		record.SignedAt = &signedAt.Time
	}
	return record, nil
}

// createReviewSchema creates the database tables and indexes.
func createReviewSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		language TEXT NOT NULL,
		status TEXT NOT NULL,
		payload TEXT NOT NULL,
		policy_version TEXT NOT NULL DEFAULT '',
		reviewed_by TEXT NOT NULL DEFAULT '',
		reviewed_at DATETIME,
		signed_by TEXT NOT NULL DEFAULT '',
		signed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS addenda (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES review_records(id),
		author TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_review_status ON review_records(status);
	CREATE INDEX IF NOT EXISTS idx_review_created_at ON review_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_addenda_document ON addenda(document_id);
	`

	_, err := db.Exec(schema)
	return err
}

// Create inserts a new review record.
func (s *SQLiteStore) Create(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_records (
			id, kind, language, status, payload, policy_version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, language, status, payload, policy_version,
			reviewed_by, reviewed_at, signed_by, signed_at,
			created_at, updated_at
		FROM review_records
		WHERE id = ?
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

// Transition atomically advances a record from one status to the next. The
// UPDATE is conditional on the expected current status, so a concurrent
// transition on the same document finds zero rows and reports the conflict.
func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to domain.ReviewStatus, actor string, at time.Time) error {
	var result sql.Result
	var err error

	switch to {
	case domain.StatusReviewed:
		result, err = s.db.ExecContext(ctx, `
			UPDATE review_records
			SET status = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, string(to), actor, at, at, id, string(from))
	case domain.StatusSigned:
		result, err = s.db.ExecContext(ctx, `
			UPDATE review_records
			SET status = ?, signed_by = ?, signed_at = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, string(to), actor, at, at, id, string(from))
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
	return s.transitionConflict(ctx, id, to)
}

// transitionConflict distinguishes a missing document from one in the
// wrong state after a zero-row conditional update.
func (s *SQLiteStore) transitionConflict(ctx context.Context, id string, attempted domain.ReviewStatus) error {
	var current string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM review_records WHERE id = ?", id,
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
		Attempted:  attempted,
	}
}

// AddAddendum inserts an addendum when the parent document is signed. The
// conditional INSERT keeps the signed-only rule enforced at the store.
func (s *SQLiteStore) AddAddendum(ctx context.Context, addendum *Addendum) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO addenda (id, document_id, author, body, created_at)
		SELECT ?, id, ?, ?, ?
		FROM review_records
		WHERE id = ? AND status = ?
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
		"SELECT status FROM review_records WHERE id = ?", addendum.DocumentID,
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
func (s *SQLiteStore) ListAddenda(ctx context.Context, documentID string) ([]*Addendum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, author, body, created_at
		FROM addenda
		WHERE document_id = ?
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
