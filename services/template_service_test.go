package services

import (
	"testing"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionRoundTrip(t *testing.T) {
	f := &types.Form{
		ID:          "form-1",
		Title:       "Event signup",
		Description: "Pick a slot",
		Status:      types.FormStatusApproved,
		Fields: []types.FormField{
			{ID: "f1", Type: types.FieldTypeEmail, Label: "Email", Required: true},
			{ID: "f2", Type: types.FieldTypeSelect, Label: "Slot", Options: []string{"Morning", "Evening"}},
		},
	}

	data, err := ExportDefinition(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1")
	assert.Contains(t, string(data), "title: Event signup")
	assert.NotContains(t, string(data), "f1")
	assert.NotContains(t, string(data), "approved")

	input, err := ParseDefinition(data, false)
	require.NoError(t, err)
	assert.Equal(t, "Event signup", input.Title)
	require.Len(t, input.Fields, 2)
	assert.Equal(t, []string{"Morning", "Evening"}, input.Fields[1].Options)
	assert.Empty(t, input.Fields[0].ID)
}

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		json    bool
		wantErr string
	}{
		{
			name: "json",
			data: `{"title":"Poll","fields":[{"id":"x","type":"radio","label":"Pick","options":["a"]}]}`,
			json: true,
		},
		{
			name:    "unknown yaml key",
			data:    "title: Poll\nowner: me\nfields:\n  - type: text\n    label: Q\n",
			wantErr: "Definition file could not be parsed",
		},
		{
			name:    "unknown json key",
			data:    `{"title":"Poll","status":"approved","fields":[]}`,
			json:    true,
			wantErr: "Definition file could not be parsed",
		},
		{
			name:    "fails form validation",
			data:    "title: Poll\nfields:\n  - type: select\n    label: Pick\n",
			wantErr: "Field #1 (Pick) requires at least one option",
		},
		{
			name:    "future version",
			data:    "version: 9\ntitle: Poll\nfields:\n  - type: text\n    label: Q\n",
			wantErr: "Unsupported definition version",
		},
		{
			name:    "empty",
			data:    "  \n",
			wantErr: "Definition file is empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseDefinition([]byte(tt.data), tt.json)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Empty(t, input.Fields[0].ID)
				return
			}
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ValidationError, appErr.Type)
			assert.Equal(t, tt.wantErr, appErr.Message)
		})
	}
}
