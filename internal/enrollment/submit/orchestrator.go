// internal/enrollment/submit/orchestrator.go
package submit

import (
	"context"
	"errors"
	"time"

	"enrollment-core/internal/carrier"
	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/common/metrics"
	"enrollment-core/internal/enrollment/store"
	"enrollment-core/internal/models"
)

// Submitter submits one carrier-shaped request and returns the
// carrier-issued application id.
type Submitter interface {
	Slug() string
	Name() string
	Submit(ctx context.Context, payload map[string]interface{}) (string, error)
}

// Directory resolves the submitter for a carrier group.
type Directory interface {
	Get(slug string) (Submitter, bool)
}

// NewCarrierDirectory adapts the carrier client registry to the Directory
// interface.
func NewCarrierDirectory(r *carrier.Registry) Directory {
	return registryDirectory{r: r}
}

type registryDirectory struct {
	r *carrier.Registry
}

func (d registryDirectory) Get(slug string) (Submitter, bool) {
	c, ok := d.r.Get(slug)
	if !ok {
		return nil, false
	}
	return c, true
}

// Persistence is the slice of the application store the orchestrator needs.
type Persistence interface {
	CreateParent(ctx context.Context, email string) (string, error)
	CreateChild(ctx context.Context, app store.ChildApplication) error
	InsertApplicants(ctx context.Context, applicationID string, applicants []models.Applicant) error
	InsertCoverages(ctx context.Context, applicationID string, items []models.CoverageItem) error
	InsertBeneficiaries(ctx context.Context, applicationID string, beneficiaries []models.Beneficiary) error
	InsertPayment(ctx context.Context, applicationID string, p models.PaymentInfo) error
	UpdateParentStatus(ctx context.Context, parentID, status string) error
}

// Auditor records submission history. Best-effort only.
type Auditor interface {
	RecordSubmission(ctx context.Context, event models.SubmissionEvent) error
}

// EventSink receives post-commit submission events for asynchronous
// notification. Emit must never block the submission path.
type EventSink interface {
	Emit(event models.SubmissionEvent)
}

// Request pairs one carrier group with its already-built payload.
type Request struct {
	Group   models.CarrierGroup
	Payload map[string]interface{}
}

// Orchestrator drives the per-carrier submission pipeline. Submissions are
// intentionally sequential: the order is deterministic and debuggable, and
// the shared persistence layer never sees concurrent writes for one user.
type Orchestrator struct {
	directory Directory
	store     Persistence
	audit     Auditor
	events    EventSink
	timeout   time.Duration
	logger    logger.Logger
}

func NewOrchestrator(directory Directory, persistence Persistence, audit Auditor, events EventSink, perCarrierTimeout time.Duration, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		directory: directory,
		store:     persistence,
		audit:     audit,
		events:    events,
		timeout:   perCarrierTimeout,
		logger:    log,
	}
}

// SubmitAll runs one enrollment attempt: parent record first when the
// enrollment spans carriers, then one submission per group in order. One
// carrier's failure never prevents attempting the others. The full result
// set is classified by the evaluator.
//
// SubmitAll does not retry a failed carrier; a retry is a user-initiated
// re-run, and the caller tracks which carriers already succeeded.
func (o *Orchestrator) SubmitAll(ctx context.Context, form models.EnrollmentForm, requests []Request) (models.EnrollmentOutcome, error) {
	if len(requests) == 0 {
		return models.EnrollmentOutcome{}, apperrors.NewEmptyCartError()
	}

	parentID := ""
	if len(requests) > 1 {
		id, err := o.store.CreateParent(ctx, form.Email)
		if err != nil {
			// Structural prerequisite: without the parent, nothing is
			// submitted at all.
			return models.EnrollmentOutcome{}, apperrors.NewParentRecordFailedError(err)
		}
		parentID = id
	}

	results := make([]models.SubmissionResult, 0, len(requests))
	for _, req := range requests {
		results = append(results, o.submitOne(ctx, form, parentID, req))
	}

	if parentID != "" {
		if err := o.store.UpdateParentStatus(ctx, parentID, models.StatusPendingReview); err != nil {
			o.logger.Warn("parent status update failed", map[string]interface{}{
				"parentId": parentID,
				"error":    err,
			})
		}
	}

	outcome, err := Evaluate(results)
	if err != nil {
		return models.EnrollmentOutcome{}, err
	}
	outcome.ParentID = parentID

	metrics.EnrollmentOutcomes.WithLabelValues(outcome.Outcome).Inc()
	o.logger.Info("enrollment attempt finished", map[string]interface{}{
		"outcome":  outcome.Outcome,
		"parentId": parentID,
		"carriers": len(results),
	})
	return outcome, nil
}

func (o *Orchestrator) submitOne(ctx context.Context, form models.EnrollmentForm, parentID string, req Request) models.SubmissionResult {
	slug := req.Group.CarrierSlug
	result := models.SubmissionResult{
		CarrierSlug: slug,
		CarrierName: req.Group.CarrierName,
	}

	sub, ok := o.directory.Get(slug)
	if !ok {
		result.Error = apperrors.NewCarrierUnavailableError(slug, errors.New("no configured endpoint")).Error()
		metrics.CarrierSubmissions.WithLabelValues(slug, "failure").Inc()
		return result
	}
	if result.CarrierName == "" {
		result.CarrierName = sub.Name()
	}

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	applicationID, err := sub.Submit(cctx, req.Payload)
	metrics.CarrierSubmissionDuration.WithLabelValues(slug).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = apperrors.NewCarrierSubmitTimeoutError(slug)
		}
		o.logger.Error("carrier submission failed", map[string]interface{}{
			"carrier": slug,
			"error":   err,
		})
		result.Error = err.Error()
		metrics.CarrierSubmissions.WithLabelValues(slug, "failure").Inc()
		return result
	}

	result.Success = true
	result.ApplicationID = applicationID
	metrics.CarrierSubmissions.WithLabelValues(slug, "success").Inc()

	o.recordChild(ctx, form, parentID, req, applicationID)
	return result
}

// recordChild persists the child record and detail rows and fires the
// best-effort side effects. The carrier already accepted the application;
// nothing here can fail the submission.
func (o *Orchestrator) recordChild(ctx context.Context, form models.EnrollmentForm, parentID string, req Request, applicationID string) {
	submittedAt := time.Now().UTC().Format(time.RFC3339)
	child := store.ChildApplication{
		ID:          applicationID,
		ParentID:    parentID,
		CarrierSlug: req.Group.CarrierSlug,
		Status:      models.StatusPendingReview,
		SubmittedAt: submittedAt,
	}

	if err := o.store.CreateChild(ctx, child); err != nil {
		o.logger.Warn("child record insert failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
	}
	if err := o.store.InsertApplicants(ctx, applicationID, form.Applicants()); err != nil {
		o.logger.Warn("applicant insert failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
	}
	if err := o.store.InsertCoverages(ctx, applicationID, req.Group.Items); err != nil {
		o.logger.Warn("coverage insert failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
	}
	if len(form.Beneficiaries) > 0 {
		if err := o.store.InsertBeneficiaries(ctx, applicationID, form.Beneficiaries); err != nil {
			o.logger.Warn("beneficiary insert failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err,
			})
		}
	}
	if !form.SubmitWithoutPayment {
		if err := o.store.InsertPayment(ctx, applicationID, form.Payment); err != nil {
			o.logger.Warn("payment record insert failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err,
			})
		}
	}

	event := models.SubmissionEvent{
		ApplicationID: applicationID,
		ParentID:      parentID,
		CarrierSlug:   req.Group.CarrierSlug,
		CarrierName:   req.Group.CarrierName,
		Email:         form.Email,
		Phone:         form.Phone,
		SubmittedAt:   submittedAt,
	}

	if o.audit != nil {
		if err := o.audit.RecordSubmission(ctx, event); err != nil {
			se := apperrors.NewAuditWriteFailedError(applicationID, err)
			o.logger.Warn(se.Message, map[string]interface{}{
				"applicationId": applicationID,
				"error":         err,
			})
		}
	}

	if o.events != nil {
		o.events.Emit(event)
	}
}
