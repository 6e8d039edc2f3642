//go:build integration

package postgres

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/NomadCrew/formflow-backend/db"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("formflow"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	initSQL, err := fs.ReadFile(db.MigrationFiles(), "migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(initSQL))
	require.NoError(t, err, "apply schema")
	return pool
}

func TestStoreIntegration(t *testing.T) {
	pool := setupTestDB(t)
	s := NewStore(pool)
	ctx := context.Background()

	form, err := s.InsertForm(ctx, &types.Form{
		Title: "Onboarding", Slug: "onboarding", Status: types.FormStatusDraft, CreatedBy: "u1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, form.ID)

	fields := []types.FormField{
		{ID: uuid.NewString(), Type: types.FieldTypeText, Label: "Name", Required: true},
		{ID: uuid.NewString(), Type: types.FieldTypeRadio, Label: "Team", Options: []string{"a", "b"}},
	}
	require.NoError(t, s.InsertFields(ctx, form.ID, fields))

	_, err = s.InsertForm(ctx, &types.Form{Title: "Dup", Slug: "onboarding", Status: types.FormStatusDraft, CreatedBy: "u1"})
	assert.ErrorIs(t, err, store.ErrConflict, "slug is unique")

	sub, err := s.InsertSubmission(ctx, &types.Submission{
		FormID: form.ID, UserID: types.AnonymousUserID, Status: types.SubmissionStatusPending,
		Values: types.FieldValues{fields[0].ID: "Ada"},
	})
	require.NoError(t, err)
	n, err := s.IncrementSubmissionCount(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	logs := []types.AuditLog{{ID: uuid.NewString(), EntityID: sub.ID, EntityType: types.EntityTypeSubmission,
		UserID: types.AnonymousUserID, Action: types.AuditActionCreate, NewValue: "pending", Timestamp: time.Now()}}
	require.NoError(t, s.InsertAuditLogs(ctx, logs))
	require.NoError(t, s.InsertAuditLogs(ctx, logs), "redelivery is a no-op")

	forms, err := s.ListForms(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, 1, forms[0].SubmissionCount)
	require.Len(t, forms[0].Fields, 2)
	assert.Equal(t, "Name", forms[0].Fields[0].Label)

	stored, err := s.ListAuditLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	page, err := s.SearchForms(ctx, types.FormSearchQuery{Query: "BOARD", PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}
