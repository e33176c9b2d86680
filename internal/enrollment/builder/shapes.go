// internal/enrollment/builder/shapes.go
package builder

import (
	"enrollment-core/internal/models"
)

// Shape keys referenced from carrier configuration.
const (
	shapeAllstate = "allstate"
	shapeStandard = "standard"
)

// allstateShape produces Allstate's nested case layout: insureds carry
// their own health sections, coverages live under the case as policies,
// and billing is a sibling of the insured list. Dates stay YYYY-MM-DD.
type allstateShape struct{}

func (s *allstateShape) Key() string { return shapeAllstate }

func (s *allstateShape) Build(in BuildInput) (map[string]interface{}, error) {
	form := in.Form

	insureds := make([]map[string]interface{}, 0, 1+len(form.Dependents))
	primaryResponses := responsesFor(in, form.Primary.ID)

	for _, a := range form.Applicants() {
		responses := responsesFor(in, a.ID)
		if len(responses) == 0 && !a.IsPrimary() {
			// Allstate requires a health section per insured; reuse the
			// primary's answers as the documented last-resort fallback.
			responses = primaryResponses
		}

		insureds = append(insureds, map[string]interface{}{
			"firstName":    a.FirstName,
			"lastName":     a.LastName,
			"birthDate":    a.DateOfBirth,
			"gender":       a.Gender,
			"relationship": models.NormalizeRelationship(a.Relationship),
			"tobaccoUse":   a.IsSmoker,
			"healthSection": map[string]interface{}{
				"questions": responseMaps(responses),
			},
		})
	}

	policies := make([]map[string]interface{}, 0, len(in.Group.Items))
	for _, item := range in.Group.Items {
		policies = append(policies, map[string]interface{}{
			"planCode":      item.PlanKey,
			"effectiveDate": item.EffectiveDate,
			"modalPremium":  item.FinalPremium(),
			"paymentMode":   item.PaymentFrequency,
			"riders":        item.Riders,
		})
	}

	payload := map[string]interface{}{
		"caseReference": in.ReferenceID,
		"submittedAt":   in.SubmittedAt,
		"agentNumber":   in.AgentID,
		"residence": map[string]interface{}{
			"state": form.ResidenceState,
			"zip":   form.ZipCode,
			"line1": form.AddressLine1,
			"city":  form.City,
		},
		"contact": map[string]interface{}{
			"email": form.Email,
			"phone": form.Phone,
		},
		"insureds": insureds,
		"policies": policies,
	}

	if !form.SubmitWithoutPayment {
		payload["billing"] = billingSection(form.Payment)
	}
	if len(form.Beneficiaries) > 0 {
		payload["beneficiaries"] = beneficiaryMaps(form.Beneficiaries)
	}

	return payload, nil
}

// standardShape is the generic flat layout used by every carrier without a
// dedicated shape: applicants, coverages, and payment as top-level lists,
// question responses attached per applicant.
type standardShape struct{}

func (s *standardShape) Key() string { return shapeStandard }

func (s *standardShape) Build(in BuildInput) (map[string]interface{}, error) {
	form := in.Form

	applicants := make([]map[string]interface{}, 0, 1+len(form.Dependents))
	for _, a := range form.Applicants() {
		applicants = append(applicants, map[string]interface{}{
			"firstName":    a.FirstName,
			"lastName":     a.LastName,
			"dateOfBirth":  a.DateOfBirth,
			"gender":       a.Gender,
			"relationship": models.NormalizeRelationship(a.Relationship),
			"isSmoker":     a.IsSmoker,
			"responses":    responseMaps(responsesFor(in, a.ID)),
		})
	}

	coverages := make([]map[string]interface{}, 0, len(in.Group.Items))
	for _, item := range in.Group.Items {
		coverages = append(coverages, map[string]interface{}{
			"planKey":          item.PlanKey,
			"effectiveDate":    item.EffectiveDate,
			"premium":          item.FinalPremium(),
			"paymentFrequency": item.PaymentFrequency,
			"riders":           item.Riders,
		})
	}

	payload := map[string]interface{}{
		"referenceId": in.ReferenceID,
		"submittedAt": in.SubmittedAt,
		"agentId":     in.AgentID,
		"state":       form.ResidenceState,
		"zipCode":     form.ZipCode,
		"email":       form.Email,
		"phone":       form.Phone,
		"applicants":  applicants,
		"coverages":   coverages,
	}

	if !form.SubmitWithoutPayment {
		payload["payment"] = billingSection(form.Payment)
	}
	if len(form.Beneficiaries) > 0 {
		payload["beneficiaries"] = beneficiaryMaps(form.Beneficiaries)
	}

	return payload, nil
}

func responseMaps(responses []models.QuestionResponse) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(responses))
	for _, r := range responses {
		out = append(out, map[string]interface{}{
			"questionId": r.QuestionID,
			"response":   r.Response,
		})
	}
	return out
}

func beneficiaryMaps(beneficiaries []models.Beneficiary) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		out = append(out, map[string]interface{}{
			"firstName":    b.FirstName,
			"lastName":     b.LastName,
			"relationship": models.NormalizeRelationship(b.Relationship),
			"percentage":   b.Percentage,
		})
	}
	return out
}

func billingSection(p models.PaymentInfo) map[string]interface{} {
	section := map[string]interface{}{
		"method": p.Method,
	}
	switch p.Method {
	case "bank_draft":
		section["accountName"] = p.AccountName
		section["routingNumber"] = p.RoutingNumber
		section["accountNumber"] = p.AccountNumber
		section["draftDay"] = p.DraftDay
	case "card":
		section["cardNumber"] = p.CardNumber
		section["cardExpiry"] = p.CardExpiry
	}
	return section
}
