package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_Stats(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM forms GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("draft", 3).
			AddRow("approved", 2))
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM submissions GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Forms[types.FormStatusDraft])
	assert.Equal(t, 0, stats.Forms[types.FormStatusRejected])
	assert.Equal(t, 5, stats.TotalForms)
	assert.Equal(t, 4, stats.Submissions[types.SubmissionStatusPending])
	assert.Equal(t, 4, stats.TotalSubs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_StatsError(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery("FROM forms").WillReturnError(errors.New("connection reset"))

	_, err := s.Stats(context.Background())
	assert.ErrorContains(t, err, "count forms")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TopForms(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"explicit limit", 2, 2},
		{"default limit", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupMockDB(t)
			mock.ExpectQuery("LEFT JOIN submissions").
				WithArgs(tt.wantLimit).
				WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "count"}).
					AddRow("f1", "Survey", "approved", 9).
					AddRow("f2", "Intake", "approved", 1))

			got, err := s.TopForms(context.Background(), tt.limit)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "f1", got[0].FormID)
			assert.Equal(t, 9, got[0].SubmissionCount)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
