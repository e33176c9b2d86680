// internal/models/enrollment.go
package models

import "strings"

// Relationship values accepted by carriers. Anything outside this set is
// normalized to RelationshipDependent before submission.
const (
	RelationshipPrimary   = "primary"
	RelationshipSpouse    = "spouse"
	RelationshipDependent = "dependent"
)

// Payment frequencies
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnual    = "annual"
)

// CoverageItem is one selected plan in the cart. Immutable once added;
// the partitioner only reads it.
type CoverageItem struct {
	PlanKey          string                 `json:"planKey"`
	PlanName         string                 `json:"planName"`
	CarrierName      string                 `json:"carrierName,omitempty"`
	CarrierSlug      string                 `json:"carrierSlug,omitempty"`
	QuotedPremium    float64                `json:"quotedPremium"`
	ConfirmedPremium *float64               `json:"confirmedPremium,omitempty"` // post household recalculation
	EffectiveDate    string                 `json:"effectiveDate"`              // YYYY-MM-DD
	PaymentFrequency string                 `json:"paymentFrequency"`
	Riders           []string               `json:"riders,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// FinalPremium returns the carrier-confirmed price when a household
// recalculation happened, otherwise the originally quoted price.
func (c CoverageItem) FinalPremium() float64 {
	if c.ConfirmedPremium != nil {
		return *c.ConfirmedPremium
	}
	return c.QuotedPremium
}

// Applicant is the primary applicant or a dependent. ID is a stable key
// assigned at intake; dependents keep their ID when siblings are removed.
type Applicant struct {
	ID            string             `json:"id"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	DateOfBirth   string             `json:"dateOfBirth"` // YYYY-MM-DD
	Gender        string             `json:"gender"`
	SSN           string             `json:"ssn,omitempty"`
	Relationship  string             `json:"relationship"`
	IsSmoker      bool               `json:"isSmoker"`
	HeightInches  int                `json:"heightInches,omitempty"`
	WeightPounds  int                `json:"weightPounds,omitempty"`
	PriorCoverage bool               `json:"priorCoverage,omitempty"`
	Responses     []QuestionResponse `json:"responses,omitempty"`
}

// IsPrimary reports whether the applicant is the primary on the enrollment.
func (a Applicant) IsPrimary() bool {
	return a.Relationship == RelationshipPrimary
}

// QuestionResponse is one applicant's answer to one eligibility question.
type QuestionResponse struct {
	QuestionID string `json:"questionId"`
	Response   string `json:"response"`
}

// Beneficiary receives the benefit for a coverage.
type Beneficiary struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Relationship string  `json:"relationship"`
	Percentage   float64 `json:"percentage"`
}

// PaymentInfo holds the payment method for an enrollment. Sensitive fields
// are excluded from carrier payloads when SubmitWithoutPayment is set.
type PaymentInfo struct {
	Method        string `json:"method"` // "bank_draft" or "card"
	AccountName   string `json:"accountName,omitempty"`
	RoutingNumber string `json:"routingNumber,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	CardNumber    string `json:"cardNumber,omitempty"`
	CardExpiry    string `json:"cardExpiry,omitempty"`
	DraftDay      int    `json:"draftDay,omitempty"`
}

// EnrollmentForm is the canonical form state assembled by the upstream
// intake flow. It is a read-only input to the enrollment core.
type EnrollmentForm struct {
	Primary              Applicant     `json:"primary"`
	Dependents           []Applicant   `json:"dependents,omitempty"`
	Coverages            []CoverageItem `json:"coverages"`
	Beneficiaries        []Beneficiary `json:"beneficiaries,omitempty"`
	Payment              PaymentInfo   `json:"payment"`
	ResidenceState       string        `json:"residenceState"`
	ZipCode              string        `json:"zipCode"`
	Email                string        `json:"email"`
	Phone                string        `json:"phone"`
	AddressLine1         string        `json:"addressLine1"`
	City                 string        `json:"city"`
	AgentID              string        `json:"agentId,omitempty"`
	PartnerCode          string        `json:"partnerCode,omitempty"`
	AttestationAccepted  bool          `json:"attestationAccepted"`
	SubmitWithoutPayment bool          `json:"submitWithoutPayment,omitempty"`
}

// Applicants returns the primary followed by all dependents.
func (f EnrollmentForm) Applicants() []Applicant {
	out := make([]Applicant, 0, 1+len(f.Dependents))
	out = append(out, f.Primary)
	out = append(out, f.Dependents...)
	return out
}

// NormalizeRelationship maps arbitrary relationship text onto the closed
// carrier set. Unrecognized values map to dependent, never pass through.
func NormalizeRelationship(rel string) string {
	switch strings.ToLower(strings.TrimSpace(rel)) {
	case RelationshipPrimary, "self", "applicant":
		return RelationshipPrimary
	case RelationshipSpouse, "wife", "husband", "partner", "domestic_partner":
		return RelationshipSpouse
	default:
		return RelationshipDependent
	}
}
