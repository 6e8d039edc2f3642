package types

import "time"

type FormStatus string

const (
	FormStatusDraft    FormStatus = "draft"
	FormStatusPending  FormStatus = "pending"
	FormStatusApproved FormStatus = "approved"
	FormStatusRejected FormStatus = "rejected"
)

// IsValidTransition reports whether the review workflow allows moving to newStatus.
// Approved and rejected are terminal; a terminal form can only be cloned.
func (s FormStatus) IsValidTransition(newStatus FormStatus) bool {
	transitions := map[FormStatus][]FormStatus{
		FormStatusDraft:    {FormStatusPending},
		FormStatusPending:  {FormStatusApproved, FormStatusRejected},
		FormStatusApproved: {},
		FormStatusRejected: {},
	}
	for _, allowed := range transitions[s] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

func (s FormStatus) IsValid() bool {
	switch s {
	case FormStatusDraft, FormStatusPending, FormStatusApproved, FormStatusRejected:
		return true
	default:
		return false
	}
}

func (s FormStatus) IsTerminal() bool {
	return s == FormStatusApproved || s == FormStatusRejected
}

func (s FormStatus) String() string {
	return string(s)
}

type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeDate     FieldType = "date"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeSelect, FieldTypeCheckbox,
		FieldTypeRadio, FieldTypeDate, FieldTypeEmail, FieldTypeNumber:
		return true
	default:
		return false
	}
}

// RequiresOptions is true for field types that pick from a fixed list.
func (t FieldType) RequiresOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeRadio
}

type FormField struct {
	ID          string    `json:"id" yaml:"id,omitempty"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// ReviewStamps records who decided on an entity and when. Each pair is set
// together. A later decision leaves the other pair in place, so a form that
// was approved and then rejected carries both.
type ReviewStamps struct {
	ApprovedBy *string    `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	RejectedBy *string    `json:"rejectedBy,omitempty"`
	RejectedAt *time.Time `json:"rejectedAt,omitempty"`
}

func (r *ReviewStamps) MarkApproved(by string, at time.Time) {
	r.ApprovedBy, r.ApprovedAt = &by, &at
}

func (r *ReviewStamps) MarkRejected(by string, at time.Time) {
	r.RejectedBy, r.RejectedAt = &by, &at
}

type Form struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields"`
	Status      FormStatus  `json:"status"`
	Slug        string      `json:"slug"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	ReviewStamps
	SubmissionCount int `json:"submissionCount"`
}

// SetStatus moves f to status at the given time. Approval and rejection
// stamp the reviewer; other targets stamp nothing.
func (f *Form) SetStatus(status FormStatus, by string, at time.Time) {
	f.Status = status
	f.UpdatedAt = at
	switch status {
	case FormStatusApproved:
		f.MarkApproved(by, at)
	case FormStatusRejected:
		f.MarkRejected(by, at)
	}
}

// Copy returns a deep copy so snapshots never share field slices.
func (f *Form) Copy() *Form {
	if f == nil {
		return nil
	}
	out := *f
	out.Fields = make([]FormField, len(f.Fields))
	for i, field := range f.Fields {
		field.Options = append([]string(nil), field.Options...)
		out.Fields[i] = field
	}
	return &out
}

// FieldByID returns the field with the given id.
func (f *Form) FieldByID(id string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FormField{}, false
}

// FormInput is the caller-supplied part of a form for create and update.
type FormInput struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description,omitempty"`
	Fields      []FormField `json:"fields" yaml:"fields"`
}

// FormStats counts forms and submissions per status.
type FormStats struct {
	Forms       map[FormStatus]int       `json:"forms"`
	Submissions map[SubmissionStatus]int `json:"submissions"`
	TotalForms  int                      `json:"totalForms"`
	TotalSubs   int                      `json:"totalSubmissions"`
}
