// Package review provides reviewer verdict storage for match results.
// It records whether a clinician confirmed or rejected what the matcher
// decided, so rule documents can be tuned against real judgements.
package review

import (
	"context"
	"io"
	"time"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// Review represents a reviewer's verdict on one patient-trial match, or on
// a trial's extracted criteria document when PatientID is empty.
type Review struct {
	ID            string              `json:"id,omitempty"`
	PatientID     string              `json:"patient_id,omitempty"`
	TrialID       string              `json:"trial_id"`
	SystemMatched bool                `json:"system_matched"`        // What the matcher decided
	Reasons       []string            `json:"reasons,omitempty"`     // Reason lines shown to the reviewer
	Status        domain.ReviewStatus `json:"status"`                // Reviewer's verdict
	Comment       string              `json:"comment,omitempty"`     // Free-form reviewer notes
	Reviewer      string              `json:"reviewer,omitempty"`    // Who reviewed
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Store defines the interface for review storage operations.
type Store interface {
	// Save stores or updates a review. If a review for the same
	// patient+trial exists, it will be updated.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for a patient-trial pair.
	// Returns nil when no review exists.
	Get(ctx context.Context, patientID, trialID string) (*Review, error)

	// List returns reviews, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ExportCSV exports all reviews as flat rows for spreadsheet review.
	ExportCSV(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ReviewExport represents the JSON export format.
type ReviewExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
