package postgres

import (
	"context"
	"fmt"

	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/jackc/pgx/v5"
)

const formColumns = `id::text, title, description, slug, status, created_by, created_at, updated_at, ` +
	`approved_by, approved_at, rejected_by, rejected_at, submission_count`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanForm(row pgx.Row) (*types.Form, error) {
	var (
		f           types.Form
		description *string
		status      string
	)
	err := row.Scan(
		&f.ID,
		&f.Title,
		&description,
		&f.Slug,
		&status,
		&f.CreatedBy,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.ApprovedBy,
		&f.ApprovedAt,
		&f.RejectedBy,
		&f.RejectedAt,
		&f.SubmissionCount,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		f.Description = *description
	}
	f.Status = types.FormStatus(status)
	f.Fields = []types.FormField{}
	return &f, nil
}

func (s *Store) InsertForm(ctx context.Context, form *types.Form) (*types.Form, error) {
	query := `
		INSERT INTO forms (title, description, slug, status, created_by, submission_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + formColumns

	created, err := scanForm(s.db.QueryRow(ctx, query,
		form.Title,
		nullable(form.Description),
		form.Slug,
		string(form.Status),
		form.CreatedBy,
		form.SubmissionCount,
	))
	if err != nil {
		return nil, mapError("insert form", err)
	}
	created.Fields = form.Copy().Fields
	return created, nil
}

const insertField = `
	INSERT INTO form_fields (id, form_id, type, label, placeholder, required, options, description, field_order)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func insertFields(ctx context.Context, tx pgx.Tx, formID string, fields []types.FormField) error {
	for i, field := range fields {
		_, err := tx.Exec(ctx, insertField,
			field.ID,
			formID,
			string(field.Type),
			field.Label,
			nullable(field.Placeholder),
			field.Required,
			field.Options,
			nullable(field.Description),
			i,
		)
		if err != nil {
			return mapError(fmt.Sprintf("insert field #%d", i+1), err)
		}
	}
	return nil
}

func (s *Store) InsertFields(ctx context.Context, formID string, fields []types.FormField) error {
	if len(fields) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return insertFields(ctx, tx, formID, fields)
	})
}

// ReplaceFields swaps the field set in one transaction.
func (s *Store) ReplaceFields(ctx context.Context, formID string, fields []types.FormField) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM form_fields WHERE form_id = $1`, formID); err != nil {
			return mapError("delete form fields", err)
		}
		return insertFields(ctx, tx, formID, fields)
	})
}

func (s *Store) UpdateForm(ctx context.Context, form *types.Form) error {
	query := `
		UPDATE forms
		SET title = $1,
			description = $2,
			status = $3,
			updated_at = $4,
			approved_by = $5,
			approved_at = $6,
			rejected_by = $7,
			rejected_at = $8
		WHERE id = $9`

	tag, err := s.db.Exec(ctx, query,
		form.Title,
		nullable(form.Description),
		string(form.Status),
		form.UpdatedAt,
		form.ApprovedBy,
		form.ApprovedAt,
		form.RejectedBy,
		form.RejectedAt,
		form.ID,
	)
	if err != nil {
		return mapError("update form", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update form %s: %w", form.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteForm(ctx context.Context, formID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM forms WHERE id = $1`, formID)
	return mapError("delete form", err)
}

// IncrementSubmissionCount is a single atomic UPDATE on this backend.
func (s *Store) IncrementSubmissionCount(ctx context.Context, formID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`UPDATE forms SET submission_count = submission_count + 1 WHERE id = $1 RETURNING submission_count`,
		formID,
	).Scan(&n)
	if err != nil {
		return 0, mapError("increment submission count", err)
	}
	return n, nil
}

func (s *Store) ListForms(ctx context.Context) ([]*types.Form, error) {
	rows, err := s.db.Query(ctx, `SELECT `+formColumns+` FROM forms ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapError("list forms", err)
	}
	forms, err := collectForms(rows)
	if err != nil {
		return nil, mapError("scan forms", err)
	}
	if err := s.attachFields(ctx, forms, false); err != nil {
		return nil, err
	}
	return forms, nil
}

func collectForms(rows pgx.Rows) ([]*types.Form, error) {
	defer rows.Close()
	var forms []*types.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// attachFields loads fields for forms. When scoped is false every field row
// is read, which is what hydration needs.
func (s *Store) attachFields(ctx context.Context, forms []*types.Form, scoped bool) error {
	if len(forms) == 0 {
		return nil
	}
	byID := make(map[string]*types.Form, len(forms))
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	query := `SELECT id, form_id::text, type, label, placeholder, required, options, description FROM form_fields`
	var args []any
	if scoped {
		query += ` WHERE form_id::text = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY form_id, field_order`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return mapError("list form fields", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			field                    types.FormField
			formID, fieldType        string
			placeholder, description *string
		)
		if err := rows.Scan(&field.ID, &formID, &fieldType, &field.Label, &placeholder,
			&field.Required, &field.Options, &description); err != nil {
			return mapError("scan form field", err)
		}
		field.Type = types.FieldType(fieldType)
		if placeholder != nil {
			field.Placeholder = *placeholder
		}
		if description != nil {
			field.Description = *description
		}
		if f, ok := byID[formID]; ok {
			f.Fields = append(f.Fields, field)
		}
	}
	return mapError("list form fields", rows.Err())
}
