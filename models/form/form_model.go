package form

import (
	"context"
	"errors"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/audit"
	"github.com/NomadCrew/formflow-backend/internal/slug"
	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
)

// slugAttempts bounds retries when the database reports a slug collision
// that local state did not know about.
const slugAttempts = 3

type FormModel struct {
	ctx *ModelContext
}

func NewFormModel(mc *ModelContext) *FormModel {
	return &FormModel{ctx: mc}
}

// GetForm returns a copy of the form with id.
func (m *FormModel) GetForm(id string) (*types.Form, error) {
	f, ok := m.ctx.State.Snapshot().FormByID(id)
	if !ok {
		return nil, apperrors.NotFound("Form", id)
	}
	return f.Copy(), nil
}

// GetFormBySlug returns a copy of the form published under slug.
func (m *FormModel) GetFormBySlug(s string) (*types.Form, error) {
	f, ok := m.ctx.State.Snapshot().FormBySlug(s)
	if !ok {
		return nil, apperrors.NotFound("Form", s)
	}
	return f.Copy(), nil
}

// ListForms returns every form, newest first.
func (m *FormModel) ListForms() []*types.Form {
	forms := m.ctx.State.Snapshot().Forms
	out := make([]*types.Form, len(forms))
	for i, f := range forms {
		out[i] = f.Copy()
	}
	return out
}

func (m *FormModel) Stats() types.FormStats {
	return m.ctx.State.Snapshot().Stats()
}

// CreateForm validates input and creates a draft form owned by actor. A remote
// failure keeps the form locally under a local id.
func (m *FormModel) CreateForm(ctx context.Context, actor types.Actor, input types.FormInput) (*types.Form, types.Persistence, error) {
	if err := ValidateInput(input); err != nil {
		return nil, types.PersistenceFailed, err
	}

	form := &types.Form{
		Title:           input.Title,
		Description:     input.Description,
		Fields:          withFieldIDs(input.Fields, false),
		Status:          types.FormStatusDraft,
		CreatedBy:       actor.ID,
		SubmissionCount: 0,
	}

	snapshot := m.ctx.State.Snapshot()
	taken := map[string]bool{}
	isTaken := func(s string) bool { return taken[s] || snapshot.SlugTaken(s) }
	base := slug.Generate(input.Title)

	var (
		created *types.Form
		err     error
	)
	for attempt := 0; attempt < slugAttempts; attempt++ {
		form.Slug = slug.Unique(base, isTaken)
		created, err = m.insertRemote(ctx, form)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		taken[form.Slug] = true
	}

	persistence := types.PersistedRemote
	if err != nil {
		remoteFailed("create form", form.Slug, err)
		now := m.ctx.clock()
		form.ID = uuid.NewString()
		form.CreatedAt = now
		form.UpdatedAt = now
		created = form
		persistence = types.PersistedLocalOnly
	}

	m.ctx.State.Dispatch(state.FormCreated{Form: created})
	m.ctx.Audit.Record(ctx, actor.ID, audit.Entry{
		EntityID:   created.ID,
		EntityType: types.EntityTypeForm,
		Action:     types.AuditActionCreate,
		NewValue:   string(types.FormStatusDraft),
	})
	m.ctx.publish(ctx, types.EventTypeFormCreated, types.EntityTypeForm, created.ID, actor.ID, formPayload(created))

	logger.GetLogger().Infow("Form created", "formID", created.ID, "slug", created.Slug, "persistence", persistence)
	return created.Copy(), persistence, nil
}

// insertRemote writes the form row then its fields. A field failure deletes
// the row again so no field-less form is left behind.
func (m *FormModel) insertRemote(ctx context.Context, form *types.Form) (*types.Form, error) {
	created, err := m.ctx.Store.InsertForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if err := m.ctx.Store.InsertFields(ctx, created.ID, form.Fields); err != nil {
		if delErr := m.ctx.Store.DeleteForm(ctx, created.ID); delErr != nil {
			logger.GetLogger().Errorw("Failed to remove form after field insert failure", "formID", created.ID, "error", delErr)
		}
		return nil, err
	}
	created.Fields = form.Copy().Fields
	return created, nil
}

// UpdateForm replaces the title, description and fields of a form.
func (m *FormModel) UpdateForm(ctx context.Context, actor types.Actor, formID string, input types.FormInput) (*types.Form, types.Persistence, error) {
	if err := ValidateInput(input); err != nil {
		return nil, types.PersistenceFailed, err
	}
	current, err := m.GetForm(formID)
	if err != nil {
		return nil, types.PersistenceFailed, err
	}
	if err := CheckEditable(actor, current); err != nil {
		return nil, types.PersistenceFailed, err
	}

	updated := current.Copy()
	updated.Title = input.Title
	updated.Description = input.Description
	updated.Fields = withFieldIDs(input.Fields, true)
	updated.UpdatedAt = m.ctx.clock()

	persistence := types.PersistedRemote
	if err := m.ctx.Store.UpdateForm(ctx, updated); err != nil {
		remoteFailed("update form", formID, err)
		persistence = types.PersistedLocalOnly
	} else if err := m.ctx.Store.ReplaceFields(ctx, formID, updated.Fields); err != nil {
		remoteFailed("replace form fields", formID, err)
		persistence = types.PersistedLocalOnly
	}

	next := m.ctx.State.Dispatch(state.FormEdited{
		ID:          formID,
		Title:       updated.Title,
		Description: updated.Description,
		Fields:      updated.Fields,
		UpdatedAt:   updated.UpdatedAt,
	})
	result := currentForm(next, updated)
	m.ctx.Audit.Record(ctx, actor.ID, audit.Entry{
		EntityID:   formID,
		EntityType: types.EntityTypeForm,
		Action:     types.AuditActionUpdate,
	})
	m.ctx.publish(ctx, types.EventTypeFormUpdated, types.EntityTypeForm, formID, actor.ID, formPayload(result))
	return result, persistence, nil
}

// UpdateFormStatus moves a form to status and stamps the reviewer on a
// decision. Callers check eligibility with CheckStatusChange first.
func (m *FormModel) UpdateFormStatus(ctx context.Context, actor types.Actor, formID string, status types.FormStatus) (*types.Form, types.Persistence, error) {
	if !status.IsValid() {
		return nil, types.PersistenceFailed, apperrors.ValidationFailed("Invalid form status", string(status))
	}
	current, err := m.GetForm(formID)
	if err != nil {
		return nil, types.PersistenceFailed, err
	}

	now := m.ctx.clock()
	updated := current.Copy()
	previous := current.Status
	updated.SetStatus(status, actor.ID, now)

	persistence := types.PersistedRemote
	if err := m.ctx.Store.UpdateForm(ctx, updated); err != nil {
		remoteFailed("update form status", formID, err)
		persistence = types.PersistedLocalOnly
	}

	next := m.ctx.State.Dispatch(state.FormStatusChanged{ID: formID, Status: status, By: actor.ID, At: now})
	m.ctx.Audit.Record(ctx, actor.ID, audit.Entry{
		EntityID:      formID,
		EntityType:    types.EntityTypeForm,
		Action:        types.AuditActionStatusUpdate,
		PreviousValue: strPtr(string(previous)),
		NewValue:      string(status),
	})
	m.ctx.publish(ctx, types.EventTypeFormStatusUpdated, types.EntityTypeForm, formID, actor.ID,
		statusChange{From: string(previous), To: string(status)})
	return currentForm(next, updated), persistence, nil
}

// currentForm reads the form back from s so the caller sees changes other
// requests applied while the remote call was in flight.
func currentForm(s state.State, fallback *types.Form) *types.Form {
	if f, ok := s.FormByID(fallback.ID); ok {
		return f.Copy()
	}
	return fallback.Copy()
}

// CloneForm copies a form into a new draft owned by actor. Reviewed forms are
// edited this way.
func (m *FormModel) CloneForm(ctx context.Context, actor types.Actor, formID string) (*types.Form, types.Persistence, error) {
	source, err := m.GetForm(formID)
	if err != nil {
		return nil, types.PersistenceFailed, err
	}

	clone, persistence, err := m.CreateForm(ctx, actor, types.FormInput{
		Title:       source.Title + " (Copy)",
		Description: source.Description,
		Fields:      source.Fields,
	})
	if err != nil {
		return nil, persistence, err
	}

	m.ctx.Audit.Record(ctx, actor.ID, audit.Entry{
		EntityID:   formID,
		EntityType: types.EntityTypeForm,
		Action:     types.AuditActionClone,
		NewValue:   clone.ID,
	})
	m.ctx.publish(ctx, types.EventTypeFormCloned, types.EntityTypeForm, clone.ID, actor.ID,
		map[string]string{"sourceId": formID})
	return clone, persistence, nil
}

// withFieldIDs copies fields. New forms always get fresh field ids since
// form_fields ids are global; updates keep the ids values are keyed by.
func withFieldIDs(fields []types.FormField, keep bool) []types.FormField {
	out := make([]types.FormField, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		field.Options = append([]string(nil), field.Options...)
		if !keep || field.ID == "" || seen[field.ID] {
			field.ID = uuid.NewString()
		}
		seen[field.ID] = true
		out[i] = field
	}
	return out
}
