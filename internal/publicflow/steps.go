// Package publicflow implements the respondent side of a published form:
// step paging, validation, drafts and respondent sessions.
package publicflow

import "github.com/NomadCrew/formflow-backend/types"

// DefaultStepsPerPage is the number of fields shown per step.
const DefaultStepsPerPage = 3

// TotalSteps returns ceil(n/perPage). A form with no fields still has one step.
func TotalSteps(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultStepsPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// StepFields returns the fields of the 1-based step. Out of range steps are empty.
func StepFields(fields []types.FormField, step, perPage int) []types.FormField {
	if perPage <= 0 {
		perPage = DefaultStepsPerPage
	}
	if step < 1 {
		return nil
	}
	start := (step - 1) * perPage
	if start >= len(fields) {
		return nil
	}
	end := start + perPage
	if end > len(fields) {
		end = len(fields)
	}
	return fields[start:end]
}
