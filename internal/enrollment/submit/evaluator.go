// internal/enrollment/submit/evaluator.go
package submit

import (
	"fmt"
	"strings"

	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/models"
)

// Evaluate classifies one enrollment attempt's submission results and
// derives the user-facing message and terminal action. The remediation
// paths differ, so "all failed, nothing submitted" is always worded apart
// from "partially succeeded".
func Evaluate(results []models.SubmissionResult) (models.EnrollmentOutcome, error) {
	if len(results) == 0 {
		return models.EnrollmentOutcome{}, apperrors.NewEmptyResultSetError()
	}

	succeeded := 0
	var failedCarriers []string
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failedCarriers = append(failedCarriers, carrierLabel(r))
		}
	}

	outcome := models.EnrollmentOutcome{
		Results:        results,
		FailedCarriers: failedCarriers,
	}

	switch {
	case succeeded == len(results):
		outcome.Outcome = models.OutcomeAllSuccess
		outcome.Title = "Enrollment submitted"
		outcome.Message = "All applications were submitted and are pending carrier review."
		outcome.Action = models.ActionRedirect

	case succeeded == 0:
		outcome.Outcome = models.OutcomeAllFailed
		outcome.Title = "Enrollment could not be submitted"
		outcome.Message = fmt.Sprintf(
			"No applications were submitted. Nothing was charged. Please retry. (failed: %s)",
			strings.Join(failedCarriers, ", "),
		)
		outcome.Action = models.ActionRetry

	default:
		outcome.Outcome = models.OutcomePartialSuccess
		outcome.Title = "Enrollment partially submitted"
		outcome.Message = fmt.Sprintf(
			"Some applications are pending carrier review, but the following need to be retried: %s.",
			strings.Join(failedCarriers, ", "),
		)
		outcome.Action = models.ActionRedirect
	}

	return outcome, nil
}

func carrierLabel(r models.SubmissionResult) string {
	if r.CarrierName != "" {
		return r.CarrierName
	}
	return r.CarrierSlug
}
