package store

import (
	"context"

	"github.com/NomadCrew/formflow-backend/types"
)

// Store is the persistence boundary for forms, submissions, audit entries and
// profiles. Every backend implements the whole set.
type Store interface {
	FormStore
	SubmissionStore
	AuditStore
	ProfileStore
	Ping(ctx context.Context) error
}

// FormStore handles the forms and form_fields tables.
type FormStore interface {
	// InsertForm writes the form row only and returns it with the id and
	// timestamps assigned by the backend.
	InsertForm(ctx context.Context, form *types.Form) (*types.Form, error)
	// InsertFields writes the fields of formID in order.
	InsertFields(ctx context.Context, formID string, fields []types.FormField) error
	// UpdateForm writes title, description, status, review stamps and updated_at.
	UpdateForm(ctx context.Context, form *types.Form) error
	// ReplaceFields deletes every field of formID, then inserts fields.
	ReplaceFields(ctx context.Context, formID string, fields []types.FormField) error
	// DeleteForm removes a form row. It is only used to undo a failed create.
	DeleteForm(ctx context.Context, formID string) error
	// IncrementSubmissionCount bumps submission_count and returns the new value.
	IncrementSubmissionCount(ctx context.Context, formID string) (int, error)
	// ListForms returns every form with its ordered fields, newest first.
	ListForms(ctx context.Context) ([]*types.Form, error)
}

// SubmissionStore handles the submissions table. Metadata is persisted inside
// values under types.MetaKey.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, sub *types.Submission) (*types.Submission, error)
	// UpdateSubmission writes status, review stamps and updated_at.
	UpdateSubmission(ctx context.Context, sub *types.Submission) error
	ListSubmissions(ctx context.Context) ([]*types.Submission, error)
}

// AuditStore handles the audit_logs table. Inserts are idempotent on id so
// the audit outbox can redeliver.
type AuditStore interface {
	InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error
	ListAuditLogs(ctx context.Context) ([]types.AuditLog, error)
}

// ProfileStore handles the profiles table.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	UpsertProfile(ctx context.Context, profile *types.Profile) error
	ListProfiles(ctx context.Context) ([]types.Profile, error)
}

// FormSearcher runs form search in the database instead of over local state.
type FormSearcher interface {
	SearchForms(ctx context.Context, q types.FormSearchQuery) (*types.FormPage, error)
}
