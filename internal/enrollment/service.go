// internal/enrollment/service.go
package enrollment

import (
	"context"
	"fmt"
	"strings"

	"enrollment-core/internal/carrier"
	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/enrollment/cart"
	"enrollment-core/internal/enrollment/eligibility"
	"enrollment-core/internal/enrollment/submit"
	"enrollment-core/internal/models"
)

// Request is one complete enrollment attempt as received from the client:
// the filled form plus the context the eligibility answers were given under.
type Request struct {
	Form    models.EnrollmentForm     `json:"form"`
	Context models.EligibilityContext `json:"eligibilityContext"`
}

// Result is the outcome of one enrollment attempt. Knockouts carries the
// advisory flags per applicant; they never block submission.
type Result struct {
	Outcome   models.EnrollmentOutcome `json:"outcome"`
	Knockouts map[string][]string      `json:"knockouts,omitempty"`
}

// Service runs the full enrollment pipeline: partition the cart by carrier,
// validate eligibility answers per carrier and applicant, build one
// carrier-shaped request per group, then hand the batch to the submission
// orchestrator.
type Service struct {
	partitioner  *cart.Partitioner
	registry     *carrier.Registry
	cache        *carrier.QuestionCache
	builder      RequestBuilder
	orchestrator *submit.Orchestrator
	logger       logger.Logger
}

// RequestBuilder builds one carrier-shaped payload per carrier group.
type RequestBuilder interface {
	Build(form models.EnrollmentForm, group models.CarrierGroup, responses map[string][]models.QuestionResponse) (map[string]interface{}, error)
}

func NewService(partitioner *cart.Partitioner, registry *carrier.Registry, cache *carrier.QuestionCache, builder RequestBuilder, orchestrator *submit.Orchestrator, log logger.Logger) *Service {
	return &Service{
		partitioner:  partitioner,
		registry:     registry,
		cache:        cache,
		builder:      builder,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Enroll validates and submits one enrollment attempt. All carrier payloads
// are built and validated before anything is submitted, so a build failure
// in any group means nothing was sent.
func (s *Service) Enroll(ctx context.Context, req Request) (Result, error) {
	groups, multiCarrier := s.partitioner.Partition(req.Form.Coverages)
	if len(groups) == 0 {
		return Result{}, apperrors.NewEmptyCartError()
	}

	s.logger.Info("enrollment attempt started", map[string]interface{}{
		"groups":       len(groups),
		"multiCarrier": multiCarrier,
	})

	applicants := req.Form.Applicants()
	knockouts := make(map[string][]string)
	flagged := make(map[string]map[string]bool)
	requests := make([]submit.Request, 0, len(groups))

	for _, group := range groups {
		client, ok := s.registry.Get(group.CarrierSlug)
		if !ok {
			return Result{}, apperrors.NewCarrierUnavailableError(group.CarrierSlug, fmt.Errorf("no configured endpoint"))
		}

		engine := eligibility.NewEngine(group.CarrierSlug, client, s.cache, s.logger)
		engine.SetContext(req.Context, applicants)

		for _, a := range applicants {
			if err := engine.LoadQuestions(ctx, a.ID); err != nil {
				return Result{}, err
			}
			for _, r := range a.Responses {
				if err := engine.SetResponse(a.ID, r.QuestionID, r.Response); err != nil {
					return Result{}, err
				}
			}
		}

		if !engine.IsEnrollmentValid() {
			return Result{}, s.validationError(engine, applicants)
		}

		// A flag is per applicant, not per carrier: several carriers asking
		// the same knockout question still yield one advisory.
		for applicantID, flags := range engine.Knockouts() {
			for _, flag := range flags {
				if flagged[applicantID][flag] {
					continue
				}
				if flagged[applicantID] == nil {
					flagged[applicantID] = make(map[string]bool)
				}
				flagged[applicantID][flag] = true
				knockouts[applicantID] = append(knockouts[applicantID], flag)
			}
		}

		responses := make(map[string][]models.QuestionResponse, len(applicants))
		for _, a := range applicants {
			responses[a.ID] = engine.Responses(a.ID)
		}

		payload, err := s.builder.Build(req.Form, group, responses)
		if err != nil {
			return Result{}, err
		}
		requests = append(requests, submit.Request{Group: group, Payload: payload})
	}

	outcome, err := s.orchestrator.SubmitAll(ctx, req.Form, requests)
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: outcome, Knockouts: knockouts}, nil
}

func (s *Service) validationError(engine *eligibility.Engine, applicants []models.Applicant) error {
	var details []string
	for _, a := range applicants {
		vs := engine.ValidationState(a.ID)
		if vs.IsValid {
			continue
		}
		details = append(details, fmt.Sprintf("%s: %s", a.ID, strings.Join(vs.Errors, ", ")))
		if hint := engine.CorrectionHint(a.ID); hint != "" {
			details = append(details, fmt.Sprintf("%s hint: %s", a.ID, hint))
		}
	}
	return apperrors.NewValidationFailedError(strings.Join(details, "; "))
}
