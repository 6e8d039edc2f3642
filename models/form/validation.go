package form

import (
	"fmt"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/types"
)

// ValidateInput checks a form definition before any remote call.
func ValidateInput(input types.FormInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.ValidationFailed("Title is required", "title")
	}
	if len(input.Fields) == 0 {
		return apperrors.ValidationFailed("At least one form field is required", "fields")
	}
	for i, field := range input.Fields {
		n := i + 1
		if field.Type == "" {
			return apperrors.ValidationFailed(fmt.Sprintf("Field #%d is missing a type", n), "fields")
		}
		if !field.Type.IsValid() {
			return apperrors.ValidationFailed(fmt.Sprintf("Field #%d has an unknown type %q", n, field.Type), "fields")
		}
		if strings.TrimSpace(field.Label) == "" {
			return apperrors.ValidationFailed(fmt.Sprintf("Field #%d is missing a label", n), "fields")
		}
		if field.Type.RequiresOptions() && !hasNonEmptyOption(field.Options) {
			return apperrors.ValidationFailed(fmt.Sprintf("Field #%d (%s) requires at least one option", n, field.Label), "fields")
		}
	}
	return nil
}

func hasNonEmptyOption(options []string) bool {
	for _, o := range options {
		if strings.TrimSpace(o) != "" {
			return true
		}
	}
	return false
}

// CheckStatusChange enforces who may move a form between statuses:
// draft to pending by the creator or an admin, pending to a decision by an
// admin only.
func CheckStatusChange(actor types.Actor, f *types.Form, next types.FormStatus) error {
	if !next.IsValid() || !f.Status.IsValidTransition(next) {
		return apperrors.InvalidStatusTransition(string(f.Status), string(next))
	}
	switch next {
	case types.FormStatusPending:
		if actor.ID != f.CreatedBy && !actor.IsAdmin() {
			return apperrors.Forbidden("Only the creator or an admin can submit this form for review", "")
		}
	case types.FormStatusApproved, types.FormStatusRejected:
		if !actor.IsAdmin() {
			return apperrors.Forbidden("Only admins can review forms", "")
		}
	}
	return nil
}

// CheckEditable rejects edits to reviewed forms and edits by other staff.
func CheckEditable(actor types.Actor, f *types.Form) error {
	if f.Status.IsTerminal() {
		return apperrors.FormLocked(f.ID, string(f.Status))
	}
	if actor.ID != f.CreatedBy && !actor.IsAdmin() {
		return apperrors.Forbidden("You can only edit your own forms", "")
	}
	return nil
}
