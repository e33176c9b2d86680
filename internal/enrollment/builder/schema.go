// internal/enrollment/builder/schema.go
package builder

import (
	"fmt"
	"strings"

	apperrors "enrollment-core/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchemas holds one JSON schema per shape. A built payload must pass
// its shape's schema before it is handed to the orchestrator; a failure
// here is a builder bug surfaced early, not a carrier rejection.
var payloadSchemas = map[string]map[string]interface{}{
	shapeAllstate: {
		"type": "object",
		"required": []interface{}{
			"caseReference", "submittedAt", "agentNumber", "residence", "contact", "insureds", "policies",
		},
		"properties": map[string]interface{}{
			"caseReference": map[string]interface{}{"type": "string", "minLength": 1},
			"insureds":      map[string]interface{}{"type": "array", "minItems": 1},
			"policies":      map[string]interface{}{"type": "array", "minItems": 1},
			"residence": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"state"},
			},
		},
	},
	shapeStandard: {
		"type": "object",
		"required": []interface{}{
			"referenceId", "submittedAt", "agentId", "state", "email", "applicants", "coverages",
		},
		"properties": map[string]interface{}{
			"referenceId": map[string]interface{}{"type": "string", "minLength": 1},
			"applicants":  map[string]interface{}{"type": "array", "minItems": 1},
			"coverages":   map[string]interface{}{"type": "array", "minItems": 1},
		},
	},
}

func validatePayload(shapeKey string, payload map[string]interface{}) error {
	schema, ok := payloadSchemas[shapeKey]
	if !ok {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("schema check: %v", err))
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return apperrors.NewValidationFailedError(strings.Join(details, "; "))
	}

	return nil
}
