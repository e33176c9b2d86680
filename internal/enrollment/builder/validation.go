// internal/enrollment/builder/validation.go
package builder

import (
	"fmt"

	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// validateApplicants runs field-level checks over every applicant plus the
// form's contact fields. Shape strategies can assume these all passed.
func validateApplicants(form models.EnrollmentForm) error {
	if err := validation.Validate(form.Email, validation.Required, is.Email); err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("email: %v", err))
	}

	for _, a := range form.Applicants() {
		errs := validation.Errors{
			"firstName":   validation.Validate(a.FirstName, validation.Required, validation.Length(1, 100)),
			"lastName":    validation.Validate(a.LastName, validation.Required, validation.Length(1, 100)),
			"dateOfBirth": validation.Validate(a.DateOfBirth, validation.Required, validation.Date("2006-01-02")),
		}.Filter()
		if errs != nil {
			return apperrors.NewValidationFailedError(fmt.Sprintf("applicant %s: %v", a.ID, errs))
		}
	}

	return nil
}
