// internal/models/eligibility.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// QuestionCondition gates a question on a prior answer. The question is
// applicable only when the referenced question's response equals Equals.
type QuestionCondition struct {
	QuestionID string `json:"questionId"`
	Equals     string `json:"equals"`
}

// EligibilityQuestion is a carrier-and-plan-specific question fetched per
// submission context. The core never persists these.
type EligibilityQuestion struct {
	ID              string             `json:"id"`
	Text            string             `json:"text"`
	Condition       *QuestionCondition `json:"condition,omitempty"`
	KnockoutAnswer  string             `json:"knockoutAnswer,omitempty"` // answering this value disqualifies
	AllowedAnswers  []string           `json:"allowedAnswers,omitempty"`
	AppliesToAll    bool               `json:"appliesToAll,omitempty"`
}

// ApplicantValidationState is derived per applicant and recomputed whenever
// that applicant's responses or question set change.
type ApplicantValidationState struct {
	ApplicantID string   `json:"applicantId"`
	IsValid     bool     `json:"isValid"`
	Errors      []string `json:"errors,omitempty"`
	Knockouts   []string `json:"knockouts,omitempty"` // advisory, does not block
}

// EligibilityContext is the request shape the carrier-eligibility
// collaborator accepts.
type EligibilityContext struct {
	SelectedPlans    []string `json:"selectedPlans"`
	State            string   `json:"state"`
	EffectiveDate    string   `json:"effectiveDate"`
	DateOfBirth      string   `json:"dateOfBirth"`
	PaymentFrequency string   `json:"paymentFrequency"`
	MemberCount      int      `json:"memberCount"`
	IsSmoker         bool     `json:"isSmoker"`
	HealthFlags      []string `json:"healthFlags,omitempty"`
}

// Fingerprint identifies one eligibility context. A question-set load is
// tagged with the fingerprint of the context it was issued for; responses
// whose fingerprint no longer matches current state are discarded.
func (c EligibilityContext) Fingerprint() string {
	raw, _ := json.Marshal(c) // struct fields marshal in declaration order
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
