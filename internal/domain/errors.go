package domain

import (
	"fmt"
	"time"
)

// MatchError represents a standardized error surfaced to callers. All
// match-engine failures are local and recoverable; the worst outcome is an
// empty result set plus one of these for the caller to display.
type MatchError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *MatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrTrialUnavailable = "TRIAL_UNAVAILABLE"
	ErrPatientUnknown   = "PATIENT_UNKNOWN"
	ErrExtraction       = "EXTRACTION_FAILED"
	ErrInterpretation   = "INTERPRETATION_FAILED"
	ErrStoreError       = "STORE_ERROR"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewMatchError creates a new MatchError with timestamp
func NewMatchError(code, message, details, requestID string) *MatchError {
	return &MatchError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
