package form

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/audit"
	"github.com/NomadCrew/formflow-backend/internal/publicflow"
	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
)

type SubmissionModel struct {
	ctx *ModelContext
}

func NewSubmissionModel(mc *ModelContext) *SubmissionModel {
	return &SubmissionModel{ctx: mc}
}

func (m *SubmissionModel) GetSubmission(id string) (*types.Submission, error) {
	sub, ok := m.ctx.State.Snapshot().SubmissionByID(id)
	if !ok {
		return nil, apperrors.NotFound("Submission", id)
	}
	return sub.Copy(), nil
}

// CreateSubmission stores a pending submission for formID. Values are limited
// to the form's field ids and validated before anything is written. An empty
// userID records the submission as anonymous.
func (m *SubmissionModel) CreateSubmission(ctx context.Context, userID, formID string, values types.FieldValues, meta *types.SubmissionMetadata) (*types.Submission, types.Persistence, error) {
	f, ok := m.ctx.State.Snapshot().FormByID(formID)
	if !ok {
		return nil, types.PersistenceFailed, apperrors.NotFound("Form", formID)
	}
	form := f.Copy()

	clean, envelope := publicflow.Sanitize(form, map[string]interface{}(values))
	if meta == nil {
		meta = envelope
	}
	if err := publicflow.ValidateAll(form.Fields, clean); err != nil {
		return nil, types.PersistenceFailed, err
	}
	if userID == "" {
		userID = types.AnonymousUserID
	}

	sub := &types.Submission{
		FormID:   formID,
		UserID:   userID,
		Status:   types.SubmissionStatusPending,
		Values:   clean,
		Metadata: meta,
	}

	persistence := types.PersistedRemote
	created, err := m.ctx.Store.InsertSubmission(ctx, sub)
	if err != nil {
		remoteFailed("create submission", formID, err)
		now := m.ctx.clock()
		sub.ID = uuid.NewString()
		sub.CreatedAt = now
		sub.UpdatedAt = now
		created = sub
		persistence = types.PersistedLocalOnly
	} else if _, err := m.ctx.Store.IncrementSubmissionCount(ctx, formID); err != nil {
		remoteFailed("increment submission count", formID, err)
		persistence = types.PersistedLocalOnly
	}

	m.ctx.State.Dispatch(state.SubmissionCreated{Submission: created})
	m.ctx.Audit.Record(ctx, userID, audit.Entry{
		EntityID:   created.ID,
		EntityType: types.EntityTypeSubmission,
		Action:     types.AuditActionCreate,
		NewValue:   string(types.SubmissionStatusPending),
	})
	m.ctx.publish(ctx, types.EventTypeSubmissionCreated, types.EntityTypeSubmission, created.ID, userID,
		map[string]string{"formId": formID})
	m.sendConfirmation(ctx, form, created)

	return created.Copy(), persistence, nil
}

func (m *SubmissionModel) sendConfirmation(ctx context.Context, form *types.Form, sub *types.Submission) {
	if m.ctx.Email == nil {
		return
	}
	email := RespondentEmail(form, sub.Values)
	if email == "" {
		return
	}
	data := types.SubmissionConfirmation{
		Email:          email,
		FormTitle:      form.Title,
		SubmissionID:   sub.ID,
		SubmissionData: DisplayValues(form, sub.Values),
	}
	m.ctx.background(ctx, "submission confirmation", func(ctx context.Context) error {
		if err := m.ctx.Email.SendSubmissionConfirmation(ctx, data); err != nil {
			logger.GetLogger().Warnw("Failed to send submission confirmation",
				"email", logger.MaskEmail(email), "submissionID", data.SubmissionID, "error", err)
		}
		return nil
	})
}

// RespondentEmail finds the respondent address in an email-typed field or
// under the "email" key.
func RespondentEmail(form *types.Form, values types.FieldValues) string {
	for _, field := range form.Fields {
		if field.Type != types.FieldTypeEmail {
			continue
		}
		if s, ok := values[field.ID].(string); ok && strings.Contains(s, "@") {
			return strings.TrimSpace(s)
		}
	}
	if s, ok := values["email"].(string); ok && strings.Contains(s, "@") {
		return strings.TrimSpace(s)
	}
	return ""
}

// DisplayValues maps field labels to printable values in field order.
func DisplayValues(form *types.Form, values types.FieldValues) map[string]string {
	out := make(map[string]string, len(values))
	for _, field := range form.Fields {
		v, ok := values[field.ID]
		if !ok || v == nil {
			continue
		}
		out[field.Label] = FormatValue(v)
	}
	return out
}

// FormatValue renders a stored value for emails and exports.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, FormatValue(p))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// CheckReview allows admins to decide on pending submissions only.
func CheckReview(actor types.Actor, sub *types.Submission, next types.SubmissionStatus) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can review submissions", "")
	}
	if !sub.Status.IsValidTransition(next) {
		return apperrors.InvalidStatusTransition(string(sub.Status), string(next))
	}
	return nil
}

// UpdateSubmissionStatus applies a review decision with the same stamping
// and audit policy as forms.
func (m *SubmissionModel) UpdateSubmissionStatus(ctx context.Context, actor types.Actor, id string, status types.SubmissionStatus) (*types.Submission, types.Persistence, error) {
	if !status.IsValid() {
		return nil, types.PersistenceFailed, apperrors.ValidationFailed("Invalid submission status", string(status))
	}
	current, err := m.GetSubmission(id)
	if err != nil {
		return nil, types.PersistenceFailed, err
	}

	now := m.ctx.clock()
	updated := current.Copy()
	previous := current.Status
	updated.SetStatus(status, actor.ID, now)

	persistence := types.PersistedRemote
	if err := m.ctx.Store.UpdateSubmission(ctx, updated); err != nil {
		remoteFailed("update submission status", id, err)
		persistence = types.PersistedLocalOnly
	}

	next := m.ctx.State.Dispatch(state.SubmissionStatusChanged{ID: id, Status: status, By: actor.ID, At: now})
	if sub, ok := next.SubmissionByID(id); ok {
		updated = sub
	}
	m.ctx.Audit.Record(ctx, actor.ID, audit.Entry{
		EntityID:      id,
		EntityType:    types.EntityTypeSubmission,
		Action:        types.AuditActionStatusUpdate,
		PreviousValue: strPtr(string(previous)),
		NewValue:      string(status),
	})
	m.ctx.publish(ctx, types.EventTypeSubmissionStatusUpdated, types.EntityTypeSubmission, id, actor.ID,
		statusChange{From: string(previous), To: string(status)})
	return updated.Copy(), persistence, nil
}

// ListSubmissions filters by form and status, matches the query against the
// submitter id and the form title, and pages newest first.
func (m *SubmissionModel) ListSubmissions(filter types.SubmissionFilter) types.SubmissionPage {
	snapshot := m.ctx.State.Snapshot()
	needle := strings.ToLower(filter.Query)

	matched := make([]*types.Submission, 0, len(snapshot.Submissions))
	for _, sub := range snapshot.Submissions {
		if filter.FormID != "" && sub.FormID != filter.FormID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(sub.UserID), needle) &&
			!strings.Contains(strings.ToLower(snapshot.FormTitle(sub.FormID)), needle) {
			continue
		}
		matched = append(matched, sub)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	info, start, end := types.Paginate(len(matched), filter.Page, filter.PerPage)
	page := make([]*types.Submission, 0, end-start)
	for _, sub := range matched[start:end] {
		page = append(page, sub.Copy())
	}
	return types.SubmissionPage{Submissions: page, PageInfo: info}
}

// SubmissionsForForm returns every submission of formID, oldest first.
func (m *SubmissionModel) SubmissionsForForm(formID string) []*types.Submission {
	var out []*types.Submission
	for _, sub := range m.ctx.State.Snapshot().Submissions {
		if sub.FormID == formID {
			out = append(out, sub.Copy())
		}
	}
	return out
}
