package review

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
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

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
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

// scanReview scans a row into a Review struct. Reason lines are stored as a
// newline-joined blob since they are only ever read back as a whole.
func scanReview(s scanner) (*Review, error) {
	rv := &Review{}
	var status, reasons string

	err := s.Scan(
		&rv.ID, &rv.PatientID, &rv.TrialID, &rv.SystemMatched,
		&reasons, &status, &rv.Comment, &rv.Reviewer,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rv.Status = domain.ReviewStatus(status)
	rv.Reasons = splitReasons(reasons)
	return rv, nil
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "\n")
}

func splitReasons(blob string) []string {
	if blob == "" {
		return nil
	}
	return strings.Split(blob, "\n")
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		trial_id TEXT NOT NULL,
		system_matched INTEGER NOT NULL DEFAULT 0,
		reasons TEXT DEFAULT '',
		status TEXT NOT NULL,
		comment TEXT DEFAULT '',
		reviewer TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(patient_id, trial_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_patient_id ON reviews(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_trial_id ON reviews(trial_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates a review for a patient-trial pair.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	if err := validateReview(review); err != nil {
		return err
	}
	now := time.Now()

	// Check if exists
	var existingID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM reviews WHERE patient_id = ? AND trial_id = ?",
		review.PatientID, review.TrialID,
	).Scan(&existingID)

	if err == nil {
		// Update existing
		review.ID = existingID
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE reviews SET
				system_matched = ?,
				reasons = ?,
				status = ?,
				comment = ?,
				reviewer = ?,
				updated_at = ?
			WHERE id = ?
		`,
			review.SystemMatched,
			joinReasons(review.Reasons),
			string(review.Status),
			review.Comment,
			review.Reviewer,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	// Insert new
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.CreatedAt = now
	review.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (
			id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}

// Get retrieves the review for a patient-trial pair.
func (s *SQLiteStore) Get(ctx context.Context, patientID, trialID string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		FROM reviews
		WHERE patient_id = ? AND trial_id = ?
		LIMIT 1
	`, patientID, trialID)

	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rv, nil
}

// List returns reviews, newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, trial_id, system_matched,
			reasons, status, comment, reviewer, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rv)
	}
	return result, rows.Err()
}

// Count returns the total number of reviews.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	return count, err
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all reviews to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return writeJSONExport(writer, all)
}

// ExportCSV exports all reviews as flat rows.
func (s *SQLiteStore) ExportCSV(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return writeCSVExport(writer, all)
}

// ImportJSON imports reviews from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// validateReview checks the fields every backend requires.
func validateReview(review *Review) error {
	if review == nil {
		return fmt.Errorf("review is required")
	}
	// An empty patient_id targets the trial document itself rather than a
	// patient-trial match.
	if review.TrialID == "" {
		return fmt.Errorf("trial_id is required")
	}
	switch review.Status {
	case domain.REVIEW_PENDING, domain.REVIEW_CONFIRMED, domain.REVIEW_REJECTED:
		return nil
	default:
		return fmt.Errorf("invalid review status %q", review.Status)
	}
}

// writeJSONExport writes the shared JSON export envelope.
func writeJSONExport(writer io.Writer, all []*Review) error {
	export := &ReviewExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Reviews:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// writeCSVExport writes one row per review. Reason lines are joined with
// "; " so each review stays on a single row.
func writeCSVExport(writer io.Writer, all []*Review) error {
	w := csv.NewWriter(writer)
	header := []string{
		"id", "patient_id", "trial_id", "system_matched",
		"status", "reasons", "comment", "reviewer", "created_at", "updated_at",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rv := range all {
		row := []string{
			rv.ID,
			rv.PatientID,
			rv.TrialID,
			strconv.FormatBool(rv.SystemMatched),
			string(rv.Status),
			strings.Join(rv.Reasons, "; "),
			rv.Comment,
			rv.Reviewer,
			rv.CreatedAt.Format(time.RFC3339),
			rv.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// importJSON runs the shared import loop against any Store backend.
func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export ReviewExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rv := range export.Reviews {
		existing, err := store.Get(ctx, rv.PatientID, rv.TrialID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := store.Save(ctx, rv); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
