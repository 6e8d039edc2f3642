package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
		{"postgresql://u:p@localhost/db?sslmode=disable", "pgx5://u:p@localhost/db?sslmode=disable"},
		{"pgx5://already", "pgx5://already"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertToPgx5URL(tt.in))
		})
	}
}

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(MigrationFiles(), "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)

	initSQL, err := fs.ReadFile(MigrationFiles(), "migrations/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(initSQL), "forms_slug_key", "slug uniqueness is enforced by the schema")
}
