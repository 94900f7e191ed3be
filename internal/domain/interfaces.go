package domain

import (
	"context"
)

// RecordStore supplies the read-only patient roster and trial rule documents
// for a matching run. Implementations own loading, caching and persistence;
// the matching core only consumes the loaded values.
type RecordStore interface {
	// Patients returns the roster in load order.
	Patients() []Patient

	// Patient looks up one roster row by ID.
	Patient(id string) (*Patient, bool)

	// Trials returns all loadable trial documents in stable (ID) order.
	// Trials that failed to load are skipped, not errors.
	Trials() []*Trial

	// Trial looks up one trial document by ID. A missing or unreadable
	// document is a TRIAL_UNAVAILABLE error.
	Trial(id string) (*Trial, error)

	// SaveTrial persists a trial document in the canonical on-disk shape so
	// extraction output can be reused as a trial definition.
	SaveTrial(id string, trial *Trial) error
}

// PageTextExtractor is the document-ingestion front end: given an uploaded
// document it yields concatenated, page-ordered raw text. Upload mechanics,
// OCR and text-layer handling live behind this boundary.
type PageTextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// Interpreter is the external text-interpretation service: raw protocol text
// in, a best-effort structured criteria payload out. The payload is
// untrusted and must be validated before any field is used.
type Interpreter interface {
	Interpret(ctx context.Context, rawText string) (*InterpretedCriteria, error)
}
