// Package reports runs aggregate queries over a database/sql connection
// (lib/pq) kept separate from the pgx pool used for writes.
package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NomadCrew/formflow-backend/types"
)

// FormActivity is a form with its submission count.
type FormActivity struct {
	FormID          string           `json:"formId"`
	Title           string           `json:"title"`
	Status          types.FormStatus `json:"status"`
	SubmissionCount int              `json:"submissionCount"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Stats counts forms and submissions per status straight from the tables.
func (s *Store) Stats(ctx context.Context) (types.FormStats, error) {
	stats := types.FormStats{
		Forms:       map[types.FormStatus]int{},
		Submissions: map[types.SubmissionStatus]int{},
	}
	for _, st := range []types.FormStatus{types.FormStatusDraft, types.FormStatusPending, types.FormStatusApproved, types.FormStatusRejected} {
		stats.Forms[st] = 0
	}
	for _, st := range []types.SubmissionStatus{types.SubmissionStatusPending, types.SubmissionStatusApproved, types.SubmissionStatusRejected} {
		stats.Submissions[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM forms GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count forms: %w", err)
	}
	if err := scanCounts(rows, func(status string, n int) {
		stats.Forms[types.FormStatus(status)] = n
		stats.TotalForms += n
	}); err != nil {
		return stats, fmt.Errorf("count forms: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count submissions: %w", err)
	}
	if err := scanCounts(rows, func(status string, n int) {
		stats.Submissions[types.SubmissionStatus(status)] = n
		stats.TotalSubs += n
	}); err != nil {
		return stats, fmt.Errorf("count submissions: %w", err)
	}
	return stats, nil
}

func scanCounts(rows *sql.Rows, fn func(string, int)) error {
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		fn(status, n)
	}
	return rows.Err()
}

// TopForms returns the forms with the most submissions.
func (s *Store) TopForms(ctx context.Context, limit int) ([]FormActivity, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.title, f.status, COUNT(s.id)
		FROM forms f
		LEFT JOIN submissions s ON s.form_id = f.id
		GROUP BY f.id, f.title, f.status
		ORDER BY COUNT(s.id) DESC, f.title
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top forms: %w", err)
	}
	defer rows.Close()

	out := []FormActivity{}
	for rows.Next() {
		var (
			a      FormActivity
			status string
		)
		if err := rows.Scan(&a.FormID, &a.Title, &status, &a.SubmissionCount); err != nil {
			return nil, fmt.Errorf("scan top forms: %w", err)
		}
		a.Status = types.FormStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
