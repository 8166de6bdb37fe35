// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins the individual messages so a result can be returned as an error.
func (r *ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks doc against a JSON schema expressed as a Go value.
func Validate(doc interface{}, schema map[string]interface{}) *ValidationResult {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return &ValidationResult{
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

// ValidateJSON is Validate for a raw JSON document.
func ValidateJSON(raw []byte, schema map[string]interface{}) *ValidationResult {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return &ValidationResult{
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_JSON"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

// ClassificationSchema describes the JSON a language model must return for
// intent classification. Intent names are supplied by the caller.
func ClassificationSchema(intents []string) map[string]interface{} {
	enum := make([]interface{}, 0, len(intents))
	for _, i := range intents {
		enum = append(enum, i)
	}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"intent"},
		"properties": map[string]interface{}{
			"intent": map[string]interface{}{
				"type": "string",
				"enum": enum,
			},
			"confidence": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"context": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"quantity":       map[string]interface{}{"type": []interface{}{"integer", "null"}, "minimum": 0},
					"customerName":   map[string]interface{}{"type": []interface{}{"string", "null"}},
					"customerEmail":  map[string]interface{}{"type": []interface{}{"string", "null"}},
					"jobNumber":      map[string]interface{}{"type": []interface{}{"string", "null"}},
					"quoteSelection": map[string]interface{}{"type": []interface{}{"string", "null"}},
				},
			},
		},
	}
}
