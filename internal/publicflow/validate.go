package publicflow

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/shopspring/decimal"
)

// FieldError describes why one field is invalid.
type FieldError struct {
	FieldID string `json:"fieldId"`
	Message string `json:"message"`
}

// IsEmpty reports whether value counts as missing for field.
func IsEmpty(field types.FormField, value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case bool:
		return field.Type == types.FieldTypeCheckbox && !v
	default:
		return false
	}
}

// CheckField validates a single value. It returns "" when the value is fine.
func CheckField(field types.FormField, value interface{}) string {
	if IsEmpty(field, value) {
		if field.Required {
			return "Please fill in the required field: " + field.Label
		}
		return ""
	}

	switch field.Type {
	case types.FieldTypeNumber:
		if _, err := toDecimal(value); err != nil {
			return fmt.Sprintf("%s must be a number", field.Label)
		}
	case types.FieldTypeEmail:
		s, ok := value.(string)
		if !ok || !strings.Contains(s, "@") {
			return fmt.Sprintf("%s must be a valid email address", field.Label)
		}
	case types.FieldTypeSelect, types.FieldTypeRadio:
		s, ok := value.(string)
		if !ok || !hasOption(field.Options, s) {
			return fmt.Sprintf("%s must be one of the listed options", field.Label)
		}
	}
	return ""
}

// Check validates every field and returns all problems in field order.
func Check(fields []types.FormField, values types.FieldValues) []FieldError {
	var out []FieldError
	for _, field := range fields {
		if msg := CheckField(field, values[field.ID]); msg != "" {
			out = append(out, FieldError{FieldID: field.ID, Message: msg})
		}
	}
	return out
}

// ValidateStep blocks progression past the given 1-based step.
func ValidateStep(fields []types.FormField, values types.FieldValues, step, perPage int) error {
	return firstError(Check(StepFields(fields, step, perPage), values))
}

// ValidateAll is run on final submit.
func ValidateAll(fields []types.FormField, values types.FieldValues) error {
	return firstError(Check(fields, values))
}

func firstError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return apperrors.ValidationFailed(errs[0].Message, errs[0].FieldID)
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported number value %T", value)
	}
}

func hasOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// Sanitize splits raw client values into the form's own field values and any
// metadata envelope. Keys that are not field ids are dropped.
func Sanitize(form *types.Form, raw map[string]interface{}) (types.FieldValues, *types.SubmissionMetadata) {
	values, meta := types.UnpackValues(raw)
	out := make(types.FieldValues, len(values))
	for _, field := range form.Fields {
		if v, ok := values[field.ID]; ok {
			out[field.ID] = v
		}
	}
	return out, meta
}
