package logger

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"empty", "", ""},
		{"regular address", "respondent@example.com", "re...t@example.com"},
		{"short local part", "ab@example.com", "**@example.com"},
		{"not an address", "not-an-email", "no...il"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.email))
		})
	}
}

func TestMaskConnectionString(t *testing.T) {
	assert.Equal(t, "postgres://formflow:***@db:5432/formflow",
		MaskConnectionString("postgres://formflow:hunter2@db:5432/formflow"))
	assert.Equal(t, "host=db password=*** sslmode=disable",
		MaskConnectionString("host=db password=hunter2 sslmode=disable"))
	assert.Equal(t, "host=db password=***",
		MaskConnectionString("host=db password=hunter2"))
}

func TestMaskJWT(t *testing.T) {
	assert.Equal(t, "", MaskJWT(""))
	assert.Equal(t, "*****", MaskJWT("abcde"))
	assert.Equal(t, "eyJ...xyz", MaskJWT("eyJhbGciOiJIUzI1NiJ9.payload.xyz"))
}

func TestFilterSensitiveHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("X-Respondent-Token", "tok")
	h.Set("Content-Type", "application/json")

	got := filterSensitiveHeaders(h)
	assert.Equal(t, "[REDACTED]", got["Authorization"])
	assert.Equal(t, "[REDACTED]", got["X-Respondent-Token"])
	assert.Equal(t, "application/json", got["Content-Type"])
}
