package supabase

import (
	"sort"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
)

// Row shapes of the PostgREST tables. Column names are snake_case.

type formRow struct {
	ID              string     `json:"id,omitempty"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Slug            string     `json:"slug"`
	Status          string     `json:"status"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	ApprovedBy      *string    `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedBy      *string    `json:"rejected_by"`
	RejectedAt      *time.Time `json:"rejected_at"`
	SubmissionCount int        `json:"submission_count"`
	Fields          []fieldRow `json:"form_fields,omitempty"`
}

type fieldRow struct {
	ID          string   `json:"id"`
	FormID      string   `json:"form_id"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Placeholder *string  `json:"placeholder"`
	Required    bool     `json:"required"`
	Options     []string `json:"options"`
	Description *string  `json:"description"`
	FieldOrder  int      `json:"field_order"`
}

type submissionRow struct {
	ID         string                 `json:"id,omitempty"`
	FormID     string                 `json:"form_id"`
	UserID     string                 `json:"user_id"`
	Status     string                 `json:"status"`
	Values     map[string]interface{} `json:"values"`
	CreatedAt  *time.Time             `json:"created_at,omitempty"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	ApprovedBy *string                `json:"approved_by"`
	ApprovedAt *time.Time             `json:"approved_at"`
	RejectedBy *string                `json:"rejected_by"`
	RejectedAt *time.Time             `json:"rejected_at"`
}

type auditRow struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	EntityType    string    `json:"entity_type"`
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"`
	PreviousValue *string   `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	Timestamp     time.Time `json:"timestamp"`
}

type profileRow struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func toFormRow(f *types.Form) formRow {
	row := formRow{
		ID:              f.ID,
		Title:           f.Title,
		Description:     optional(f.Description),
		Slug:            f.Slug,
		Status:          string(f.Status),
		CreatedBy:       f.CreatedBy,
		ApprovedBy:      f.ApprovedBy,
		ApprovedAt:      f.ApprovedAt,
		RejectedBy:      f.RejectedBy,
		RejectedAt:      f.RejectedAt,
		SubmissionCount: f.SubmissionCount,
	}
	if !f.CreatedAt.IsZero() {
		row.CreatedAt = &f.CreatedAt
	}
	if !f.UpdatedAt.IsZero() {
		row.UpdatedAt = &f.UpdatedAt
	}
	return row
}

func (r formRow) toForm() *types.Form {
	fields := append([]fieldRow(nil), r.Fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].FieldOrder < fields[j].FieldOrder })

	f := &types.Form{
		ID:          r.ID,
		Title:       r.Title,
		Description: deref(r.Description),
		Fields:      make([]types.FormField, 0, len(fields)),
		Status:      types.FormStatus(r.Status),
		Slug:        r.Slug,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   timeOrZero(r.CreatedAt),
		UpdatedAt:   timeOrZero(r.UpdatedAt),
		ReviewStamps: types.ReviewStamps{
			ApprovedBy: r.ApprovedBy,
			ApprovedAt: r.ApprovedAt,
			RejectedBy: r.RejectedBy,
			RejectedAt: r.RejectedAt,
		},
		SubmissionCount: r.SubmissionCount,
	}
	for _, fr := range fields {
		f.Fields = append(f.Fields, fr.toField())
	}
	return f
}

func toFieldRows(formID string, fields []types.FormField) []fieldRow {
	rows := make([]fieldRow, len(fields))
	for i, field := range fields {
		rows[i] = fieldRow{
			ID:          field.ID,
			FormID:      formID,
			Type:        string(field.Type),
			Label:       field.Label,
			Placeholder: optional(field.Placeholder),
			Required:    field.Required,
			Options:     field.Options,
			Description: optional(field.Description),
			FieldOrder:  i,
		}
	}
	return rows
}

func (r fieldRow) toField() types.FormField {
	return types.FormField{
		ID:          r.ID,
		Type:        types.FieldType(r.Type),
		Label:       r.Label,
		Placeholder: deref(r.Placeholder),
		Required:    r.Required,
		Options:     r.Options,
		Description: deref(r.Description),
	}
}

func toSubmissionRow(s *types.Submission) submissionRow {
	row := submissionRow{
		ID:         s.ID,
		FormID:     s.FormID,
		UserID:     s.UserID,
		Status:     string(s.Status),
		Values:     types.PackValues(s.Values, s.Metadata),
		ApprovedBy: s.ApprovedBy,
		ApprovedAt: s.ApprovedAt,
		RejectedBy: s.RejectedBy,
		RejectedAt: s.RejectedAt,
	}
	if !s.CreatedAt.IsZero() {
		row.CreatedAt = &s.CreatedAt
	}
	if !s.UpdatedAt.IsZero() {
		row.UpdatedAt = &s.UpdatedAt
	}
	return row
}

func (r submissionRow) toSubmission() *types.Submission {
	values, meta := types.UnpackValues(r.Values)
	return &types.Submission{
		ID:        r.ID,
		FormID:    r.FormID,
		UserID:    r.UserID,
		Status:    types.SubmissionStatus(r.Status),
		Values:    values,
		Metadata:  meta,
		CreatedAt: timeOrZero(r.CreatedAt),
		UpdatedAt: timeOrZero(r.UpdatedAt),
		ReviewStamps: types.ReviewStamps{
			ApprovedBy: r.ApprovedBy,
			ApprovedAt: r.ApprovedAt,
			RejectedBy: r.RejectedBy,
			RejectedAt: r.RejectedAt,
		},
	}
}

func toAuditRow(l types.AuditLog) auditRow {
	return auditRow{
		ID:            l.ID,
		EntityID:      l.EntityID,
		EntityType:    string(l.EntityType),
		UserID:        l.UserID,
		Action:        string(l.Action),
		PreviousValue: l.PreviousValue,
		NewValue:      l.NewValue,
		Timestamp:     l.Timestamp,
	}
}

func (r auditRow) toAuditLog() types.AuditLog {
	return types.AuditLog{
		ID:            r.ID,
		EntityID:      r.EntityID,
		EntityType:    types.EntityType(r.EntityType),
		UserID:        r.UserID,
		Action:        types.AuditAction(r.Action),
		PreviousValue: r.PreviousValue,
		NewValue:      r.NewValue,
		Timestamp:     r.Timestamp,
	}
}
