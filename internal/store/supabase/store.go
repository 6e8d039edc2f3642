// Package supabase implements the persistence boundary over Supabase PostgREST.
package supabase

import (
	"context"
	"fmt"
	"strings"

	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	tableForms       = "forms"
	tableFields      = "form_fields"
	tableSubmissions = "submissions"
	tableAudit       = "audit_logs"
	tableProfiles    = "profiles"
)

// Client is the subset of *supabase.Client used by the store.
type Client interface {
	From(table string) *postgrest.QueryBuilder
}

var _ Client = (*supabase.Client)(nil)

// Store talks to PostgREST. postgrest-go has no context plumbing, so a
// cancelled context is only honoured before each request.
type Store struct {
	client Client
}

var _ store.Store = (*Store)(nil)

func NewStore(client Client) *Store {
	return &Store{client: client}
}

// classify maps PostgREST error text onto store sentinel errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case store.IsPermissionDenied(err):
		return fmt.Errorf("%s: %w: %v", op, store.ErrPermissionDenied, err)
	case strings.Contains(err.Error(), "(23505)"):
		return fmt.Errorf("%s: %w: %v", op, store.ErrConflict, err)
	case strings.Contains(err.Error(), "(PGRST116)"):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(tableForms).Select("id", "", false).Limit(1, "").Execute()
	return classify("ping", err)
}

func (s *Store) InsertForm(ctx context.Context, form *types.Form) (*types.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := toFormRow(form)
	row.Fields = nil

	var created []formRow
	if _, err := s.client.From(tableForms).Insert(row, false, "", "representation", "").ExecuteTo(&created); err != nil {
		return nil, classify("insert form", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("insert form: no row returned")
	}
	out := created[0].toForm()
	out.Fields = form.Copy().Fields
	return out, nil
}

func (s *Store) InsertFields(ctx context.Context, formID string, fields []types.FormField) error {
	if len(fields) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(tableFields).Insert(toFieldRows(formID, fields), false, "", "minimal", "").Execute()
	return classify("insert form fields", err)
}

func (s *Store) UpdateForm(ctx context.Context, form *types.Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update := map[string]interface{}{
		"title":       form.Title,
		"description": optional(form.Description),
		"status":      string(form.Status),
		"updated_at":  form.UpdatedAt,
		"approved_by": form.ApprovedBy,
		"approved_at": form.ApprovedAt,
		"rejected_by": form.RejectedBy,
		"rejected_at": form.RejectedAt,
	}
	var rows []formRow
	if _, err := s.client.From(tableForms).Update(update, "representation", "").Eq("id", form.ID).ExecuteTo(&rows); err != nil {
		return classify("update form", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("update form %s: %w", form.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ReplaceFields(ctx context.Context, formID string, fields []types.FormField) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.client.From(tableFields).Delete("minimal", "").Eq("form_id", formID).Execute(); err != nil {
		return classify("delete form fields", err)
	}
	return s.InsertFields(ctx, formID, fields)
}

func (s *Store) DeleteForm(ctx context.Context, formID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(tableForms).Delete("minimal", "").Eq("id", formID).Execute()
	return classify("delete form", err)
}

// IncrementSubmissionCount reads the current count and writes count+1. It is
// not atomic; concurrent submissions to one form can lose an increment.
func (s *Store) IncrementSubmissionCount(ctx context.Context, formID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var current formRow
	if _, err := s.client.From(tableForms).Select("submission_count", "", false).Eq("id", formID).Single().ExecuteTo(&current); err != nil {
		return 0, classify("read submission count", err)
	}
	next := current.SubmissionCount + 1
	update := map[string]interface{}{"submission_count": next}
	if _, _, err := s.client.From(tableForms).Update(update, "minimal", "").Eq("id", formID).Execute(); err != nil {
		return 0, classify("write submission count", err)
	}
	return next, nil
}

func (s *Store) ListForms(ctx context.Context) ([]*types.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []formRow
	_, err := s.client.From(tableForms).
		Select("*,form_fields(*)", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, classify("list forms", err)
	}
	forms := make([]*types.Form, len(rows))
	for i, r := range rows {
		forms[i] = r.toForm()
	}
	logger.GetLogger().Debugw("Loaded forms from PostgREST", "count", len(forms))
	return forms, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub *types.Submission) (*types.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := toSubmissionRow(sub)
	var created []submissionRow
	if _, err := s.client.From(tableSubmissions).Insert(row, false, "", "representation", "").ExecuteTo(&created); err != nil {
		return nil, classify("insert submission", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("insert submission: no row returned")
	}
	return created[0].toSubmission(), nil
}

func (s *Store) UpdateSubmission(ctx context.Context, sub *types.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update := map[string]interface{}{
		"status":      string(sub.Status),
		"updated_at":  sub.UpdatedAt,
		"approved_by": sub.ApprovedBy,
		"approved_at": sub.ApprovedAt,
		"rejected_by": sub.RejectedBy,
		"rejected_at": sub.RejectedAt,
	}
	var rows []submissionRow
	if _, err := s.client.From(tableSubmissions).Update(update, "representation", "").Eq("id", sub.ID).ExecuteTo(&rows); err != nil {
		return classify("update submission", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("update submission %s: %w", sub.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]*types.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []submissionRow
	_, err := s.client.From(tableSubmissions).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, classify("list submissions", err)
	}
	subs := make([]*types.Submission, len(rows))
	for i, r := range rows {
		subs[i] = r.toSubmission()
	}
	return subs, nil
}

// InsertAuditLogs upserts on id, so a redelivered entry is a no-op.
func (s *Store) InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([]auditRow, len(logs))
	for i, l := range logs {
		rows[i] = toAuditRow(l)
	}
	_, _, err := s.client.From(tableAudit).Upsert(rows, "id", "minimal", "").Execute()
	return classify("insert audit logs", err)
}

func (s *Store) ListAuditLogs(ctx context.Context) ([]types.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []auditRow
	_, err := s.client.From(tableAudit).
		Select("*", "", false).
		Order("timestamp", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, classify("list audit logs", err)
	}
	logs := make([]types.AuditLog, len(rows))
	for i, r := range rows {
		logs[i] = r.toAuditLog()
	}
	return logs, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []profileRow
	if _, err := s.client.From(tableProfiles).Select("id,email,role", "", false).Eq("id", userID).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, classify("get profile", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	return &types.Profile{ID: rows[0].ID, Email: rows[0].Email, Role: types.ParseUserRole(rows[0].Role)}, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *types.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := profileRow{ID: p.ID, Email: p.Email, Role: string(p.Role)}
	_, _, err := s.client.From(tableProfiles).Upsert(row, "id", "minimal", "").Execute()
	return classify("upsert profile", err)
}

func (s *Store) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []profileRow
	if _, err := s.client.From(tableProfiles).Select("id,email,role", "", false).ExecuteTo(&rows); err != nil {
		return nil, classify("list profiles", err)
	}
	out := make([]types.Profile, len(rows))
	for i, r := range rows {
		out[i] = types.Profile{ID: r.ID, Email: r.Email, Role: types.ParseUserRole(r.Role)}
	}
	return out, nil
}
