// internal/models/submission.go
package models

// Application statuses
const (
	StatusLinking       = "linking" // parent record awaiting child submissions
	StatusPendingReview = "pending_review"
	StatusFailed        = "failed"
)

// Enrollment outcomes
const (
	OutcomeAllSuccess     = "all_success"
	OutcomePartialSuccess = "partial_success"
	OutcomeAllFailed      = "all_failed"
)

// Terminal UI actions derived from the outcome
const (
	ActionRedirect = "redirect"
	ActionRetry    = "retry"
)

// CarrierGroup is one partition of the cart: a carrier plus the coverage
// items that belong to it. One group yields exactly one carrier request and
// one SubmissionResult.
type CarrierGroup struct {
	CarrierSlug string         `json:"carrierSlug"`
	CarrierName string         `json:"carrierName"`
	Items       []CoverageItem `json:"items"`
}

// SubmissionResult records the outcome of one carrier submission. Immutable
// once recorded; a sibling's failure never invalidates it.
type SubmissionResult struct {
	CarrierSlug   string `json:"carrierSlug"`
	CarrierName   string `json:"carrierName"`
	Success       bool   `json:"success"`
	ApplicationID string `json:"applicationId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// EnrollmentOutcome is the aggregate classification of one submission
// attempt, plus the user-facing message and terminal action.
type EnrollmentOutcome struct {
	Outcome        string             `json:"outcome"`
	Title          string             `json:"title"`
	Message        string             `json:"message"`
	Action         string             `json:"action"`
	ParentID       string             `json:"parentId,omitempty"`
	Results        []SubmissionResult `json:"results"`
	FailedCarriers []string           `json:"failedCarriers,omitempty"`
}

// SubmissionEvent is emitted after a child application reaches pending
// review. Consumed asynchronously by the notifier.
type SubmissionEvent struct {
	ApplicationID string `json:"applicationId"`
	ParentID      string `json:"parentId,omitempty"`
	CarrierSlug   string `json:"carrierSlug"`
	CarrierName   string `json:"carrierName"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	SubmittedAt   string `json:"submittedAt"` // ISO 8601
}
