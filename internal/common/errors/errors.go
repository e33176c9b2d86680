// Package errors provides standardized error handling for the enrollment
// pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"

	ErrCodeInvalidEffectiveDate ErrorCode = "INVALID_EFFECTIVE_DATE"
	ErrCodeContextMismatch      ErrorCode = "CONTEXT_MISMATCH"

	ErrCodeCarrierUnavailable    ErrorCode = "CARRIER_UNAVAILABLE"
	ErrCodeCarrierSubmitFailed   ErrorCode = "CARRIER_SUBMIT_FAILED"
	ErrCodeCarrierSubmitTimeout  ErrorCode = "CARRIER_SUBMIT_TIMEOUT"
	ErrCodeEligibilityFetchError ErrorCode = "ELIGIBILITY_FETCH_ERROR"

	ErrCodeParentRecordFailed ErrorCode = "PARENT_RECORD_FAILED"

	ErrCodeAuditWriteFailed       ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeEmptyCart            ErrorCode = "EMPTY_CART"
	ErrCodeEmptyResultSet       ErrorCode = "EMPTY_RESULT_SET"
	ErrCodeUnknownCarrierShape  ErrorCode = "UNKNOWN_CARRIER_SHAPE"
)

// Category groups error codes by their propagation policy.
type Category string

const (
	CategoryValidation   Category = "VALIDATION"   // user fixes before submit
	CategoryContext      Category = "CONTEXT"      // correctable, blocks one applicant
	CategoryCollaborator Category = "COLLABORATOR" // recorded per carrier, never aborts siblings
	CategoryStructural   Category = "STRUCTURAL"   // aborts the whole submission
	CategoryBestEffort   Category = "BEST_EFFORT"  // logged only
)

// ==========================
// 2. Standard Error Type
// ==========================

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Hint      string                 `json:"hint,omitempty"` // correction hint for context errors
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CategoryOf returns the category of err, or empty when err is not a
// StandardError.
func CategoryOf(err error) Category {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// IsContextError reports whether err is a correctable context error, as
// opposed to a transport/infra failure.
func IsContextError(err error) bool {
	return CategoryOf(err) == CategoryContext
}

// IsStructural reports whether err must abort the whole submission.
func IsStructural(err error) bool {
	return CategoryOf(err) == CategoryStructural
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Category:  CategoryValidation,
		Message:   "Enrollment data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRequiredFieldError creates a non-retryable validation error
// naming the missing fields.
func NewMissingRequiredFieldError(fields ...string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredField,
		Category:  CategoryValidation,
		Message:   "Required enrollment fields are missing",
		Details:   fmt.Sprintf("fields: %v", fields),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEffectiveDateError creates a correctable context error with a
// hint for the user.
func NewInvalidEffectiveDateError(date, hint string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEffectiveDate,
		Category:  CategoryContext,
		Message:   "Coverage effective date is not valid",
		Details:   fmt.Sprintf("effectiveDate: %s", date),
		Hint:      hint,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContextError creates a correctable context error carrying the
// carrier's own code and correction hint.
func NewContextError(code, message, hint string) *StandardError {
	ec := ErrCodeContextMismatch
	if code == string(ErrCodeInvalidEffectiveDate) {
		ec = ErrCodeInvalidEffectiveDate
	}
	return &StandardError{
		Code:      ec,
		Category:  CategoryContext,
		Message:   message,
		Hint:      hint,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEligibilityFetchError creates a retryable collaborator error for a
// failed question-set fetch.
func NewEligibilityFetchError(carrier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEligibilityFetchError,
		Category:  CategoryCollaborator,
		Message:   "Eligibility question fetch failed",
		Details:   fmt.Sprintf("carrier: %s, error: %s", carrier, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCarrierUnavailableError creates a retryable collaborator error.
func NewCarrierUnavailableError(carrier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCarrierUnavailable,
		Category:  CategoryCollaborator,
		Message:   fmt.Sprintf("Carrier '%s' is unavailable", carrier),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCarrierSubmitFailedError creates a collaborator error recorded against
// one carrier's SubmissionResult.
func NewCarrierSubmitFailedError(carrier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCarrierSubmitFailed,
		Category:  CategoryCollaborator,
		Message:   fmt.Sprintf("Submission to carrier '%s' failed", carrier),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCarrierSubmitTimeoutError creates a collaborator error for a timed-out
// submission call. A timed-out call is a failure, never left pending.
func NewCarrierSubmitTimeoutError(carrier string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCarrierSubmitTimeout,
		Category:  CategoryCollaborator,
		Message:   fmt.Sprintf("Submission to carrier '%s' timed out", carrier),
		Details:   "submission call exceeded its deadline",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParentRecordFailedError creates a structural error. When the parent
// record cannot be created nothing has been submitted.
func NewParentRecordFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParentRecordFailed,
		Category:  CategoryStructural,
		Message:   "Parent enrollment record creation failed; nothing was submitted",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a best-effort error that is logged only.
func NewAuditWriteFailedError(applicationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Category:  CategoryBestEffort,
		Message:   "Submission history write failed",
		Details:   fmt.Sprintf("applicationId: %s, error: %s", applicationID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a best-effort error that is logged only.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Category:  CategoryBestEffort,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Category:  CategoryCollaborator,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyCartError creates a non-retryable validation error for an empty cart.
func NewEmptyCartError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyCart,
		Category:  CategoryValidation,
		Message:   "No coverage items selected",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyResultSetError creates a validation error: the evaluator was given
// no submission results.
func NewEmptyResultSetError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyResultSet,
		Category:  CategoryValidation,
		Message:   "No submission results to evaluate",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
