package domain

// Core Enums and Types

// ReviewStatus represents the reviewer's verdict on a match or an extracted
// criteria document.
type ReviewStatus string

const (
	REVIEW_PENDING   ReviewStatus = "PENDING"
	REVIEW_CONFIRMED ReviewStatus = "CONFIRMED"
	REVIEW_REJECTED  ReviewStatus = "REJECTED"
)

// ExtractionStrategy identifies which pipeline produced a criteria document.
type ExtractionStrategy string

const (
	STRATEGY_DETERMINISTIC ExtractionStrategy = "DETERMINISTIC"
	STRATEGY_INTERPRETER   ExtractionStrategy = "INTERPRETER"
)

// DefaultPerformanceStatusMax is the performance-status ceiling applied when
// a trial's criteria omit performance_status_max.
const DefaultPerformanceStatusMax = 2

// Core Data Models

// Patient is one row of the patient roster. Stage, MutationStatus and
// PerformanceStatus are the only fields the evaluator reads; everything else
// the record store saw is preserved in Attributes for display.
type Patient struct {
	PatientID         string            `json:"patient_id"`
	Stage             string            `json:"stage"`
	MutationStatus    string            `json:"mutation_status"`
	PerformanceStatus int               `json:"performance_status"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// Trial is a trial rule document: a display title plus structured criteria.
// This is the canonical on-disk shape; both static authoring and the
// extraction pipeline converge to it.
type Trial struct {
	ID       string   `json:"-"`
	Title    string   `json:"title"`
	Criteria Criteria `json:"criteria"`
}

// MatchResult is the verdict for one (patient, trial) pair. Reasons is an
// ordered list of display-ready sentences, one per applicable check, in
// stage, mutation, performance-status order. It is recomputed on demand and
// never persisted.
type MatchResult struct {
	PatientID  string   `json:"patient_id"`
	TrialID    string   `json:"trial_id"`
	TrialTitle string   `json:"trial_title"`
	IsMatch    bool     `json:"is_match"`
	Reasons    []string `json:"reasons"`
}

// ExtractedCriteria is the output of the deterministic extraction strategy:
// ordered inclusion and exclusion criterion strings. Not guaranteed
// well-formed; callers validate before treating it as trial criteria.
type ExtractedCriteria struct {
	Inclusion []string `json:"inclusion"`
	Exclusion []string `json:"exclusion"`
}

// InterpretedCriteria is the output of the interpretation-service strategy:
// a validated rule model plus the raw inclusion/exclusion text the service
// reported. Degraded is set when the service failed or returned an
// unparsable payload, in which case Criteria is empty and only the raw
// input text is usable.
type InterpretedCriteria struct {
	Criteria     Criteria `json:"criteria"`
	RawInclusion string   `json:"raw_inclusion"`
	RawExclusion string   `json:"raw_exclusion"`
	Degraded     bool     `json:"degraded"`
	FailureNote  string   `json:"failure_note,omitempty"`
}
