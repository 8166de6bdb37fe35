// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSON_Classification(t *testing.T) {
	schema := ClassificationSchema([]string{"QUOTE_REQUEST", "HELP"})

	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantField string
	}{
		{
			name:      "valid with context",
			raw:       `{"intent":"QUOTE_REQUEST","confidence":0.92,"context":{"quantity":50,"customerName":"Acme"}}`,
			wantValid: true,
		},
		{
			name:      "null context fields allowed",
			raw:       `{"intent":"HELP","context":{"quantity":null}}`,
			wantValid: true,
		},
		{
			name:      "unknown intent",
			raw:       `{"intent":"ORDER_PIZZA"}`,
			wantField: "intent",
		},
		{
			name:      "missing intent",
			raw:       `{"confidence":0.3}`,
			wantField: "(root)",
		},
		{
			name:      "confidence out of range",
			raw:       `{"intent":"HELP","confidence":1.5}`,
			wantField: "confidence",
		},
		{
			name:      "negative quantity",
			raw:       `{"intent":"HELP","context":{"quantity":-4}}`,
			wantField: "context.quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateJSON([]byte(tt.raw), schema)
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
				assert.Contains(t, res.Error(), "validation failed")
			}
		})
	}
}

func TestValidateJSON_Malformed(t *testing.T) {
	res := ValidateJSON([]byte(`{"intent":`), ClassificationSchema([]string{"HELP"}))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_JSON", res.Errors[0].Code)
}

func TestValidate_GoValue(t *testing.T) {
	doc := map[string]interface{}{"intent": "HELP", "confidence": 0.5}
	assert.True(t, Validate(doc, ClassificationSchema([]string{"HELP"})).Valid)
}
