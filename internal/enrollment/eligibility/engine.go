// internal/enrollment/eligibility/engine.go
package eligibility

import (
	"context"
	"fmt"

	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/common/metrics"
	"enrollment-core/internal/models"
)

// State is one applicant's position in the questionnaire lifecycle.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StateLoading          State = "loading"
	StateAnsweredPartial  State = "answered_partial"
	StateAnsweredComplete State = "answered_complete"
	StateContextError     State = "context_error"
)

// QuestionFetcher is the carrier-eligibility collaborator. It returns a
// question set (possibly empty), a context error, or a transport error.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, ec models.EligibilityContext) ([]models.EligibilityQuestion, error)
}

// QuestionCache is an optional read-through cache keyed by context
// fingerprint. Misses and failures fall through to the fetcher.
type QuestionCache interface {
	Get(ctx context.Context, carrierSlug, fingerprint string) ([]models.EligibilityQuestion, bool)
	Put(ctx context.Context, carrierSlug, fingerprint string, questions []models.EligibilityQuestion)
}

// applicantState is one applicant's questionnaire state machine instance.
type applicantState struct {
	state     State
	questions []models.EligibilityQuestion
	responses map[string]string
	errors    []string
	knockouts []string
	hint      string
}

// Engine maintains, per applicant, the current question set and
// response/validation state, and exposes the aggregate readiness signal.
//
// The engine runs in a single-threaded, event-driven model: every response
// edit, question-set load, or applicant change synchronously recomputes
// that applicant's state and then the aggregate signal.
type Engine struct {
	carrierSlug string
	fetcher     QuestionFetcher
	cache       QuestionCache
	logger      logger.Logger

	ctx         models.EligibilityContext
	fingerprint string
	states      map[string]*applicantState
	order       []string
}

func NewEngine(carrierSlug string, fetcher QuestionFetcher, cache QuestionCache, log logger.Logger) *Engine {
	return &Engine{
		carrierSlug: carrierSlug,
		fetcher:     fetcher,
		cache:       cache,
		logger:      log.WithFields(map[string]interface{}{"carrier": carrierSlug}),
		states:      make(map[string]*applicantState),
	}
}

// SetContext replaces the submission context (plans, state, effective date,
// demographics) and registers the given applicants. All previously loaded
// question sets are discarded; every applicant re-enters Uninitialized, so
// the aggregate signal is false until loads complete.
func (e *Engine) SetContext(ec models.EligibilityContext, applicants []models.Applicant) {
	e.ctx = ec
	e.fingerprint = ec.Fingerprint()
	e.states = make(map[string]*applicantState, len(applicants))
	e.order = e.order[:0]

	for _, a := range applicants {
		e.states[a.ID] = newApplicantState()
		e.order = append(e.order, a.ID)
	}
}

// AddApplicant registers a newly added dependent. Its state starts
// Uninitialized, which flips the aggregate signal to false until its
// question set loads (fail closed).
func (e *Engine) AddApplicant(applicantID string) {
	if _, ok := e.states[applicantID]; ok {
		return
	}
	e.states[applicantID] = newApplicantState()
	e.order = append(e.order, applicantID)
}

// RemoveApplicant drops a dependent's state instance.
func (e *Engine) RemoveApplicant(applicantID string) {
	if _, ok := e.states[applicantID]; !ok {
		return
	}
	delete(e.states, applicantID)
	for i, id := range e.order {
		if id == applicantID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func newApplicantState() *applicantState {
	return &applicantState{
		state:     StateUninitialized,
		responses: make(map[string]string),
	}
}

// LoadQuestions fetches the question set for one applicant under the
// current context. The load is tagged with the context fingerprint taken
// before the call; if the context changed while the fetch was in flight the
// stale result is discarded rather than applied against the new context.
func (e *Engine) LoadQuestions(ctx context.Context, applicantID string) error {
	st, ok := e.states[applicantID]
	if !ok {
		return fmt.Errorf("unknown applicant %q", applicantID)
	}
	if len(e.ctx.SelectedPlans) == 0 {
		return fmt.Errorf("no plan selection for applicant %q", applicantID)
	}

	st.state = StateLoading
	fingerprint := e.fingerprint

	if e.cache != nil {
		if cached, hit := e.cache.Get(ctx, e.carrierSlug, fingerprint); hit {
			e.applyQuestions(applicantID, fingerprint, cached)
			metrics.EligibilityFetches.WithLabelValues(e.carrierSlug, "cache_hit").Inc()
			return nil
		}
	}

	questions, err := e.fetcher.FetchQuestions(ctx, e.ctx)
	if fingerprint != e.fingerprint {
		// Context changed while the fetch was in flight; the response
		// belongs to a context that no longer exists.
		e.logger.Info("discarding stale question-set load", map[string]interface{}{
			"applicantId": applicantID,
			"fingerprint": fingerprint,
		})
		return nil
	}

	if err != nil {
		return e.applyFetchError(applicantID, err)
	}

	if e.cache != nil {
		e.cache.Put(ctx, e.carrierSlug, fingerprint, questions)
	}
	metrics.EligibilityFetches.WithLabelValues(e.carrierSlug, "ok").Inc()
	e.applyQuestions(applicantID, fingerprint, questions)
	return nil
}

func (e *Engine) applyQuestions(applicantID, fingerprint string, questions []models.EligibilityQuestion) {
	if fingerprint != e.fingerprint {
		return
	}
	st, ok := e.states[applicantID]
	if !ok {
		return
	}
	st.questions = questions
	st.hint = ""
	e.recompute(st)
}

// applyFetchError handles the two collaborator failure modes. A context
// error blocks the applicant with a correction hint; any other failure
// degrades to "no additional questions required" so the user is not blocked
// indefinitely. Server-side re-validation before final submission backstops
// the degraded path.
func (e *Engine) applyFetchError(applicantID string, err error) error {
	st := e.states[applicantID]

	if apperrors.IsContextError(err) {
		var hint string
		if se, ok := err.(*apperrors.StandardError); ok {
			hint = se.Hint
		}
		st.state = StateContextError
		st.hint = hint
		st.errors = []string{err.Error()}
		metrics.EligibilityFetches.WithLabelValues(e.carrierSlug, "context_error").Inc()
		return err
	}

	e.logger.Warn("eligibility fetch failed, treating applicant as having no questions", map[string]interface{}{
		"applicantId": applicantID,
		"error":       err,
	})
	metrics.EligibilityFetches.WithLabelValues(e.carrierSlug, "degraded").Inc()
	st.questions = nil
	e.recompute(st)
	return nil
}

// SetResponse records one answer and synchronously recomputes the
// applicant's state.
func (e *Engine) SetResponse(applicantID, questionID, response string) error {
	st, ok := e.states[applicantID]
	if !ok {
		return fmt.Errorf("unknown applicant %q", applicantID)
	}
	if st.state == StateUninitialized || st.state == StateLoading {
		return fmt.Errorf("questions not loaded for applicant %q", applicantID)
	}
	st.responses[questionID] = response
	e.recompute(st)
	return nil
}

// ApplicableQuestions returns the questions currently applicable to the
// applicant: unconditional ones plus those whose condition is satisfied by
// a recorded answer.
func (e *Engine) ApplicableQuestions(applicantID string) []models.EligibilityQuestion {
	st, ok := e.states[applicantID]
	if !ok {
		return nil
	}
	return applicable(st)
}

func applicable(st *applicantState) []models.EligibilityQuestion {
	out := make([]models.EligibilityQuestion, 0, len(st.questions))
	for _, q := range st.questions {
		if q.Condition != nil && st.responses[q.Condition.QuestionID] != q.Condition.Equals {
			continue
		}
		out = append(out, q)
	}
	return out
}

// recompute derives Answered(partial|complete), validation errors, and
// knockout advisories from the current responses and question set.
func (e *Engine) recompute(st *applicantState) {
	if st.state == StateContextError {
		return
	}

	qs := applicable(st)
	st.errors = st.errors[:0]
	st.knockouts = st.knockouts[:0]

	for _, q := range qs {
		resp, answered := st.responses[q.ID]
		if !answered {
			st.errors = append(st.errors, fmt.Sprintf("question %s is unanswered", q.ID))
			continue
		}
		if q.KnockoutAnswer != "" && resp == q.KnockoutAnswer {
			st.knockouts = append(st.knockouts, q.ID)
		}
	}

	if len(st.errors) == 0 {
		st.state = StateAnsweredComplete
	} else {
		st.state = StateAnsweredPartial
	}
}

// ApplicantState returns the lifecycle state for one applicant.
func (e *Engine) ApplicantState(applicantID string) State {
	if st, ok := e.states[applicantID]; ok {
		return st.state
	}
	return StateUninitialized
}

// ValidationState returns the derived validation state for one applicant.
// An applicant that has not been evaluated yet is not valid.
func (e *Engine) ValidationState(applicantID string) models.ApplicantValidationState {
	st, ok := e.states[applicantID]
	if !ok {
		return models.ApplicantValidationState{
			ApplicantID: applicantID,
			IsValid:     false,
			Errors:      []string{"validation state not initialized"},
		}
	}

	return models.ApplicantValidationState{
		ApplicantID: applicantID,
		IsValid:     st.state == StateAnsweredComplete,
		Errors:      append([]string(nil), st.errors...),
		Knockouts:   append([]string(nil), st.knockouts...),
	}
}

// CorrectionHint returns the hint carried by a ContextError state.
func (e *Engine) CorrectionHint(applicantID string) string {
	if st, ok := e.states[applicantID]; ok {
		return st.hint
	}
	return ""
}

// Knockouts returns the knockout advisories across all applicants. They are
// surfaced distinctly from validation errors and never block progression.
func (e *Engine) Knockouts() map[string][]string {
	out := make(map[string][]string)
	for id, st := range e.states {
		if len(st.knockouts) > 0 {
			out[id] = append([]string(nil), st.knockouts...)
		}
	}
	return out
}

// IsEnrollmentValid is the aggregate readiness signal: true only when every
// registered applicant has an initialized, individually valid state. An
// applicant still loading, or registered but not yet evaluated, counts as
// invalid.
func (e *Engine) IsEnrollmentValid() bool {
	if len(e.order) == 0 {
		return false
	}
	for _, id := range e.order {
		st, ok := e.states[id]
		if !ok || st.state != StateAnsweredComplete {
			return false
		}
	}
	return true
}

// Responses returns a copy of one applicant's recorded responses in
// question-set order, for inclusion in a carrier request. Only currently
// applicable questions are included: an answer to a conditional question
// whose gate has since flipped stays recorded but is never emitted.
func (e *Engine) Responses(applicantID string) []models.QuestionResponse {
	st, ok := e.states[applicantID]
	if !ok {
		return nil
	}
	qs := applicable(st)
	out := make([]models.QuestionResponse, 0, len(qs))
	for _, q := range qs {
		if resp, answered := st.responses[q.ID]; answered {
			out = append(out, models.QuestionResponse{QuestionID: q.ID, Response: resp})
		}
	}
	return out
}
