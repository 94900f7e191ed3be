package review

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/amikxn/TrialMatchAI/internal/domain"
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

// Save stores or updates a review for a patient-trial pair.
func (s *PostgresStore) Save(ctx context.Context, review *Review) error {
	if err := validateReview(review); err != nil {
		return err
	}
	now := time.Now()
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	// Use upsert (INSERT ... ON CONFLICT)
	query := `
		INSERT INTO reviews (
			id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (patient_id, trial_id) DO UPDATE SET
			system_matched = EXCLUDED.system_matched,
			reasons = EXCLUDED.reasons,
			status = EXCLUDED.status,
			comment = EXCLUDED.comment,
			reviewer = EXCLUDED.reviewer,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		review.ID,
		review.PatientID,
		review.TrialID,
		review.SystemMatched,
		joinReasons(review.Reasons),
		string(review.Status),
		review.Comment,
		review.Reviewer,
		now,
		now,
	).Scan(&review.ID, &review.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	review.UpdatedAt = now
	return nil
}

// Get retrieves the review for a patient-trial pair.
func (s *PostgresStore) Get(ctx context.Context, patientID, trialID string) (*Review, error) {
	query := `
		SELECT id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		FROM reviews
		WHERE patient_id = $1 AND trial_id = $2
		LIMIT 1
	`

	rv := &Review{}
	var status, reasons string

	err := s.db.QueryRowContext(ctx, query, patientID, trialID).Scan(
		&rv.ID, &rv.PatientID, &rv.TrialID, &rv.SystemMatched,
		&reasons, &status, &rv.Comment, &rv.Reviewer,
		&rv.CreatedAt, &rv.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	rv.Status = domain.ReviewStatus(status)
	rv.Reasons = splitReasons(reasons)
	return rv, nil
}

// List returns reviews, newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	query := `
		SELECT id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var result []*Review
	for rows.Next() {
		rv := &Review{}
		var status, reasons string

		err := rows.Scan(
			&rv.ID, &rv.PatientID, &rv.TrialID, &rv.SystemMatched,
			&reasons, &status, &rv.Comment, &rv.Reviewer,
			&rv.CreatedAt, &rv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rv.Status = domain.ReviewStatus(status)
		rv.Reasons = splitReasons(reasons)
		result = append(result, rv)
	}

	return result, rows.Err()
}

// Count returns the total number of reviews.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Delete removes a review by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON exports all reviews to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, pgMaxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return writeJSONExport(writer, all)
}

// ExportCSV exports all reviews as flat rows.
func (s *PostgresStore) ExportCSV(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, pgMaxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return writeCSVExport(writer, all)
}

// ImportJSON imports reviews from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
