// internal/enrollment/submit/orchestrator_test.go
package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/enrollment/store"
	"enrollment-core/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type fakeSubmitter struct {
	slug  string
	name  string
	appID string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeSubmitter) Slug() string { return f.slug }
func (f *fakeSubmitter) Name() string { return f.name }

func (f *fakeSubmitter) Submit(ctx context.Context, payload map[string]interface{}) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.appID, nil
}

type fakeDirectory struct {
	submitters map[string]*fakeSubmitter
}

func (d *fakeDirectory) Get(slug string) (Submitter, bool) {
	s, ok := d.submitters[slug]
	if !ok {
		return nil, false
	}
	return s, true
}

type fakeStore struct {
	parentErr      error
	parentCalls    int
	childApps      []store.ChildApplication
	applicantCalls int
	coverageCalls  int
	paymentCalls   int
	statusUpdates  []string
}

func (s *fakeStore) CreateParent(ctx context.Context, email string) (string, error) {
	s.parentCalls++
	if s.parentErr != nil {
		return "", s.parentErr
	}
	return "parent-1", nil
}

func (s *fakeStore) CreateChild(ctx context.Context, app store.ChildApplication) error {
	s.childApps = append(s.childApps, app)
	return nil
}

func (s *fakeStore) InsertApplicants(ctx context.Context, applicationID string, applicants []models.Applicant) error {
	s.applicantCalls++
	return nil
}

func (s *fakeStore) InsertCoverages(ctx context.Context, applicationID string, items []models.CoverageItem) error {
	s.coverageCalls++
	return nil
}

func (s *fakeStore) InsertBeneficiaries(ctx context.Context, applicationID string, beneficiaries []models.Beneficiary) error {
	return nil
}

func (s *fakeStore) InsertPayment(ctx context.Context, applicationID string, p models.PaymentInfo) error {
	s.paymentCalls++
	return nil
}

func (s *fakeStore) UpdateParentStatus(ctx context.Context, parentID, status string) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

type fakeAuditor struct {
	events []models.SubmissionEvent
	err    error
}

func (a *fakeAuditor) RecordSubmission(ctx context.Context, event models.SubmissionEvent) error {
	a.events = append(a.events, event)
	return a.err
}

type fakeSink struct {
	events []models.SubmissionEvent
}

func (s *fakeSink) Emit(event models.SubmissionEvent) {
	s.events = append(s.events, event)
}

// ==========================
// Test Helper Functions
// ==========================

func testForm() models.EnrollmentForm {
	return models.EnrollmentForm{
		Primary: models.Applicant{
			ID:           "primary",
			FirstName:    "Jane",
			LastName:     "Doe",
			DateOfBirth:  "1985-04-12",
			Relationship: models.RelationshipPrimary,
		},
		Email: "jane@example.com",
		Phone: "+15550100",
		Payment: models.PaymentInfo{
			Method:      "bank_draft",
			AccountName: "Jane Doe",
		},
	}
}

func twoCarrierRequests() []Request {
	return []Request{
		{
			Group: models.CarrierGroup{
				CarrierSlug: "allstate",
				CarrierName: "Allstate",
				Items:       []models.CoverageItem{{PlanKey: "term-20"}},
			},
			Payload: map[string]interface{}{"caseReference": "ref-1"},
		},
		{
			Group: models.CarrierGroup{
				CarrierSlug: "guardian-health",
				CarrierName: "Guardian Health",
				Items:       []models.CoverageItem{{PlanKey: "dental-100"}},
			},
			Payload: map[string]interface{}{"referenceId": "ref-2"},
		},
	}
}

func newTestOrchestrator(t *testing.T, dir Directory, st Persistence, audit Auditor, sink EventSink, timeout time.Duration) *Orchestrator {
	t.Helper()
	return NewOrchestrator(dir, st, audit, sink, timeout, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestSubmitAll_AllSuccess_MultiCarrier(t *testing.T) {
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{
		"allstate":        {slug: "allstate", name: "Allstate", appID: "APP-A"},
		"guardian-health": {slug: "guardian-health", name: "Guardian Health", appID: "APP-G"},
	}}
	st := &fakeStore{}
	audit := &fakeAuditor{}
	sink := &fakeSink{}

	o := newTestOrchestrator(t, dir, st, audit, sink, time.Second)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests())

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllSuccess, outcome.Outcome)
	assert.Equal(t, "parent-1", outcome.ParentID)
	assert.Equal(t, 1, st.parentCalls)
	require.Len(t, st.childApps, 2)
	assert.Equal(t, "APP-A", st.childApps[0].ID)
	assert.Equal(t, "parent-1", st.childApps[0].ParentID)
	assert.Equal(t, []string{models.StatusPendingReview}, st.statusUpdates)
	assert.Len(t, audit.events, 2)
	assert.Len(t, sink.events, 2)
}

func TestSubmitAll_SingleCarrier_NoParent(t *testing.T) {
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{
		"allstate": {slug: "allstate", name: "Allstate", appID: "APP-A"},
	}}
	st := &fakeStore{}

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, time.Second)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests()[:1])

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllSuccess, outcome.Outcome)
	assert.Empty(t, outcome.ParentID)
	assert.Zero(t, st.parentCalls)
	require.Len(t, st.childApps, 1)
	assert.Empty(t, st.childApps[0].ParentID)
}

func TestSubmitAll_PartialSuccess_ContinuesPastFailure(t *testing.T) {
	allstate := &fakeSubmitter{slug: "allstate", name: "Allstate", err: errors.New("carrier refused")}
	guardian := &fakeSubmitter{slug: "guardian-health", name: "Guardian Health", appID: "APP-G"}
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{
		"allstate":        allstate,
		"guardian-health": guardian,
	}}
	st := &fakeStore{}

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, time.Second)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests())

	require.NoError(t, err)
	assert.Equal(t, models.OutcomePartialSuccess, outcome.Outcome)
	// The second carrier was still attempted.
	assert.Equal(t, 1, guardian.calls)
	assert.Equal(t, []string{"Allstate"}, outcome.FailedCarriers)
	// Only the successful submission was persisted.
	require.Len(t, st.childApps, 1)
	assert.Equal(t, "APP-G", st.childApps[0].ID)
}

func TestSubmitAll_ParentRecordFailure_AbortsEverything(t *testing.T) {
	allstate := &fakeSubmitter{slug: "allstate", name: "Allstate", appID: "APP-A"}
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{"allstate": allstate}}
	st := &fakeStore{parentErr: errors.New("db down")}

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, time.Second)
	_, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests())

	require.Error(t, err)
	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeParentRecordFailed, se.Code)
	// No carrier was contacted.
	assert.Zero(t, allstate.calls)
}

func TestSubmitAll_TimeoutRecordedAsFailure(t *testing.T) {
	slow := &fakeSubmitter{slug: "allstate", name: "Allstate", appID: "APP-A", delay: 200 * time.Millisecond}
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{"allstate": slow}}
	st := &fakeStore{}

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, 20*time.Millisecond)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests()[:1])

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllFailed, outcome.Outcome)
	require.Len(t, outcome.Results, 1)
	assert.Contains(t, outcome.Results[0].Error, string(apperrors.ErrCodeCarrierSubmitTimeout))
}

func TestSubmitAll_UnknownCarrierRecordedAsFailure(t *testing.T) {
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{}}
	st := &fakeStore{}

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, time.Second)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests()[:1])

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllFailed, outcome.Outcome)
}

// ==========================
// Best-Effort Side Effect Tests
// ==========================

func TestSubmitAll_AuditFailureDoesNotEscalate(t *testing.T) {
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{
		"allstate": {slug: "allstate", name: "Allstate", appID: "APP-A"},
	}}
	st := &fakeStore{}
	audit := &fakeAuditor{err: errors.New("es down")}
	sink := &fakeSink{}

	o := newTestOrchestrator(t, dir, st, audit, sink, time.Second)
	outcome, err := o.SubmitAll(context.Background(), testForm(), twoCarrierRequests()[:1])

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllSuccess, outcome.Outcome)
	// The event still reached the notifier.
	assert.Len(t, sink.events, 1)
}

func TestSubmitAll_SkipsPaymentWhenSubmittingWithoutIt(t *testing.T) {
	dir := &fakeDirectory{submitters: map[string]*fakeSubmitter{
		"allstate": {slug: "allstate", name: "Allstate", appID: "APP-A"},
	}}
	st := &fakeStore{}

	form := testForm()
	form.SubmitWithoutPayment = true

	o := newTestOrchestrator(t, dir, st, &fakeAuditor{}, &fakeSink{}, time.Second)
	_, err := o.SubmitAll(context.Background(), form, twoCarrierRequests()[:1])

	require.NoError(t, err)
	assert.Zero(t, st.paymentCalls)
	assert.Equal(t, 1, st.applicantCalls)
	assert.Equal(t, 1, st.coverageCalls)
}

// ==========================
// Edge Case Tests
// ==========================

func TestSubmitAll_EmptyRequestListRejected(t *testing.T) {
	o := newTestOrchestrator(t, &fakeDirectory{}, &fakeStore{}, &fakeAuditor{}, &fakeSink{}, time.Second)

	_, err := o.SubmitAll(context.Background(), testForm(), nil)

	require.Error(t, err)
	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.ErrCodeEmptyCart, se.Code)
}
