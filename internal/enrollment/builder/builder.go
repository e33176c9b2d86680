// internal/enrollment/builder/builder.go
package builder

import (
	"errors"
	"fmt"
	"time"

	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUnknownShape = errors.New("UNKNOWN_CARRIER_SHAPE")
)

// Shape builds the carrier-specific payload for one carrier group. Shapes
// differ structurally between carriers (nesting, grouping, date formats),
// so each carrier dispatches to its own implementation rather than sharing
// one universal schema with optional fields.
type Shape interface {
	Key() string
	Build(in BuildInput) (map[string]interface{}, error)
}

// BuildInput is everything one shape needs to produce a payload.
type BuildInput struct {
	Form      models.EnrollmentForm
	Group     models.CarrierGroup
	Responses map[string][]models.QuestionResponse
	AgentID   string

	// Time-derived fields, generated once per build. Two builds from
	// identical inputs differ only in these.
	ReferenceID string
	SubmittedAt string
}

// Builder maps the canonical form state plus one carrier group into that
// carrier's wire shape. Pure transformation: no I/O, no mutation of inputs.
type Builder struct {
	shapes         map[string]Shape
	shapeByCarrier map[string]string
	defaultAgentID string
	logger         logger.Logger
}

// NewBuilder registers the known shapes. shapeByCarrier maps carrier slug
// to shape key; unmapped carriers use the standard shape.
func NewBuilder(shapeByCarrier map[string]string, defaultAgentID string, log logger.Logger) *Builder {
	b := &Builder{
		shapes:         make(map[string]Shape),
		shapeByCarrier: shapeByCarrier,
		defaultAgentID: defaultAgentID,
		logger:         log,
	}
	b.register(&allstateShape{})
	b.register(&standardShape{})
	return b
}

func (b *Builder) register(s Shape) {
	b.shapes[s.Key()] = s
}

// Build produces the carrier-shaped enrollment request for one group.
func (b *Builder) Build(form models.EnrollmentForm, group models.CarrierGroup, responses map[string][]models.QuestionResponse) (map[string]interface{}, error) {
	if err := validateForm(form, group); err != nil {
		return nil, err
	}

	shape, err := b.shapeFor(group.CarrierSlug)
	if err != nil {
		return nil, err
	}

	agentID := form.AgentID
	if agentID == "" {
		agentID = b.defaultAgentID
	}

	in := BuildInput{
		Form:        form,
		Group:       group,
		Responses:   responses,
		AgentID:     agentID,
		ReferenceID: uuid.New().String(),
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := shape.Build(in)
	if err != nil {
		return nil, err
	}

	if err := validatePayload(shape.Key(), payload); err != nil {
		return nil, err
	}

	b.logger.Debug("built carrier request", map[string]interface{}{
		"carrier":     group.CarrierSlug,
		"shape":       shape.Key(),
		"referenceId": in.ReferenceID,
	})
	return payload, nil
}

func (b *Builder) shapeFor(carrierSlug string) (Shape, error) {
	key, ok := b.shapeByCarrier[carrierSlug]
	if !ok {
		key = shapeStandard
	}
	shape, ok := b.shapes[key]
	if !ok {
		return nil, fmt.Errorf("%w: shape %q for carrier %q", ErrUnknownShape, key, carrierSlug)
	}
	return shape, nil
}

// responsesFor returns exactly the responses applicable to one applicant.
// An applicant with no carrier questions gets an empty list, never another
// applicant's answers.
func responsesFor(in BuildInput, applicantID string) []models.QuestionResponse {
	if rs, ok := in.Responses[applicantID]; ok && rs != nil {
		return rs
	}
	return []models.QuestionResponse{}
}

// validateForm checks required canonical fields before any shape runs.
func validateForm(form models.EnrollmentForm, group models.CarrierGroup) error {
	var missing []string

	if form.Primary.FirstName == "" || form.Primary.LastName == "" {
		missing = append(missing, "primary.name")
	}
	if form.Primary.DateOfBirth == "" {
		missing = append(missing, "primary.dateOfBirth")
	}
	if form.ResidenceState == "" {
		missing = append(missing, "residenceState")
	}
	if form.Email == "" {
		missing = append(missing, "email")
	}
	if len(group.Items) == 0 {
		missing = append(missing, "coverages")
	}
	for i, item := range group.Items {
		if item.EffectiveDate == "" {
			missing = append(missing, fmt.Sprintf("coverages[%d].effectiveDate", i))
		}
	}
	if !form.SubmitWithoutPayment && form.Payment.Method == "" {
		missing = append(missing, "payment.method")
	}

	if len(missing) > 0 {
		return apperrors.NewMissingRequiredFieldError(missing...)
	}

	return validateApplicants(form)
}
