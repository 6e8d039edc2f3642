package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/NomadCrew/formflow-backend/types"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchForms filters, sorts and pages forms in SQL. The page clamp matches
// the in-memory search so both paths return the same page for one query.
func (s *Store) SearchForms(ctx context.Context, q types.FormSearchQuery) (*types.FormPage, error) {
	var (
		where []string
		args  []any
	)
	if q.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR COALESCE(description, '') ILIKE $%d)", n, n))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.CreatedBy != "" {
		args = append(args, q.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM forms`+clause, args...).Scan(&total); err != nil {
		return nil, mapError("count forms", err)
	}

	info, start, end := types.Paginate(total, q.Page, q.PerPage)
	page := &types.FormPage{Forms: []*types.Form{}, PageInfo: info}
	if end <= start {
		return page, nil
	}

	pageArgs := append(append([]any(nil), args...), end-start, start)
	query := fmt.Sprintf(`SELECT %s FROM forms%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		formColumns, clause, len(pageArgs)-1, len(pageArgs))
	rows, err := s.db.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, mapError("search forms", err)
	}
	forms, err := collectForms(rows)
	if err != nil {
		return nil, mapError("scan forms", err)
	}
	if err := s.attachFields(ctx, forms, true); err != nil {
		return nil, err
	}
	page.Forms = forms
	return page, nil
}
