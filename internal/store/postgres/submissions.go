package postgres

import (
	"context"
	"fmt"

	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/jackc/pgx/v5"
)

const submissionColumns = `id::text, form_id::text, user_id, status, values, created_at, updated_at, ` +
	`approved_by, approved_at, rejected_by, rejected_at`

func scanSubmission(row pgx.Row) (*types.Submission, error) {
	var (
		sub    types.Submission
		status string
		raw    map[string]interface{}
	)
	err := row.Scan(
		&sub.ID,
		&sub.FormID,
		&sub.UserID,
		&status,
		&raw,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.ApprovedBy,
		&sub.ApprovedAt,
		&sub.RejectedBy,
		&sub.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = types.SubmissionStatus(status)
	sub.Values, sub.Metadata = types.UnpackValues(raw)
	return &sub, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub *types.Submission) (*types.Submission, error) {
	query := `
		INSERT INTO submissions (form_id, user_id, status, values)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + submissionColumns

	created, err := scanSubmission(s.db.QueryRow(ctx, query,
		sub.FormID,
		sub.UserID,
		string(sub.Status),
		types.PackValues(sub.Values, sub.Metadata),
	))
	if err != nil {
		return nil, mapError("insert submission", err)
	}
	return created, nil
}

func (s *Store) UpdateSubmission(ctx context.Context, sub *types.Submission) error {
	query := `
		UPDATE submissions
		SET status = $1,
			updated_at = $2,
			approved_by = $3,
			approved_at = $4,
			rejected_by = $5,
			rejected_at = $6
		WHERE id = $7`

	tag, err := s.db.Exec(ctx, query,
		string(sub.Status),
		sub.UpdatedAt,
		sub.ApprovedBy,
		sub.ApprovedAt,
		sub.RejectedBy,
		sub.RejectedAt,
		sub.ID,
	)
	if err != nil {
		return mapError("update submission", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update submission %s: %w", sub.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]*types.Submission, error) {
	rows, err := s.db.Query(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY created_at`)
	if err != nil {
		return nil, mapError("list submissions", err)
	}
	defer rows.Close()

	var subs []*types.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, mapError("scan submission", err)
		}
		subs = append(subs, sub)
	}
	return subs, mapError("list submissions", rows.Err())
}
