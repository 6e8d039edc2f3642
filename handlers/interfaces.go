package handlers

import (
	"context"
	"time"

	"github.com/NomadCrew/formflow-backend/internal/publicflow"
	"github.com/NomadCrew/formflow-backend/services"
	"github.com/NomadCrew/formflow-backend/types"
)

// FormService is implemented by *form.FormModel.
type FormService interface {
	GetForm(id string) (*types.Form, error)
	GetFormBySlug(slug string) (*types.Form, error)
	Search(ctx context.Context, q types.FormSearchQuery) types.FormPage
	Stats() types.FormStats
	CreateForm(ctx context.Context, actor types.Actor, input types.FormInput) (*types.Form, types.Persistence, error)
	UpdateForm(ctx context.Context, actor types.Actor, formID string, input types.FormInput) (*types.Form, types.Persistence, error)
	UpdateFormStatus(ctx context.Context, actor types.Actor, formID string, status types.FormStatus) (*types.Form, types.Persistence, error)
	CloneForm(ctx context.Context, actor types.Actor, formID string) (*types.Form, types.Persistence, error)
	AuditTrail(entityID string) []types.AuditLog
	RecentAudit(limit int) []types.AuditLog
}

// SubmissionService is implemented by *form.SubmissionModel.
type SubmissionService interface {
	GetSubmission(id string) (*types.Submission, error)
	CreateSubmission(ctx context.Context, userID, formID string, values types.FieldValues, meta *types.SubmissionMetadata) (*types.Submission, types.Persistence, error)
	UpdateSubmissionStatus(ctx context.Context, actor types.Actor, id string, status types.SubmissionStatus) (*types.Submission, types.Persistence, error)
	ListSubmissions(filter types.SubmissionFilter) types.SubmissionPage
	SubmissionsForForm(formID string) []*types.Submission
}

// Dispatcher runs background jobs; *services.WorkerPool implements it.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

// Exporter is implemented by *services.ExportService.
type Exporter interface {
	Enabled() bool
	ExportSubmissions(ctx context.Context, f *types.Form, subs []*types.Submission) (*services.ExportResult, error)
}

// DraftSaver is implemented by *publicflow.Autosaver.
type DraftSaver interface {
	Save(key publicflow.DraftKey, values types.FieldValues, startTime time.Time)
	Cancel(ctx context.Context, key publicflow.DraftKey) error
	Pending(key publicflow.DraftKey) (publicflow.Draft, bool)
}

// UserAdmin is implemented by *services.UserService.
type UserAdmin interface {
	ListUsers(ctx context.Context) ([]types.ManagedUser, error)
	InviteUser(ctx context.Context, email string, role types.UserRole) (*types.ManagedUser, error)
	UpdateRole(ctx context.Context, userID string, role types.UserRole) (*types.ManagedUser, error)
	DeleteUser(ctx context.Context, actor types.Actor, userID string) error
}

// Sessions is implemented by *publicflow.SessionIssuer.
type Sessions interface {
	Issue(formID string) (string, *publicflow.SessionClaims, error)
	Verify(token, formID string) (*publicflow.SessionClaims, error)
}
