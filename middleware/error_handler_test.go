package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		errType    gin.ErrorType
		wantStatus int
		want       types.ErrorResponse
	}{
		{
			name:       "validation error keeps details",
			err:        apperrors.ValidationFailed("Title is required", "title"),
			errType:    gin.ErrorTypePrivate,
			wantStatus: http.StatusBadRequest,
			want:       types.ErrorResponse{Type: "VALIDATION_ERROR", Message: "Title is required", Code: "400", Details: "title"},
		},
		{
			name:       "not found",
			err:        apperrors.NotFound("Form", "abc"),
			errType:    gin.ErrorTypePrivate,
			wantStatus: http.StatusNotFound,
			want:       types.ErrorResponse{Type: "NOT_FOUND", Message: "Form not found", Code: "404", Details: "ID: abc"},
		},
		{
			name:       "wrapped app error",
			err:        errors.Join(errors.New("ctx"), apperrors.Forbidden("Admin access required", "/v1/users")),
			errType:    gin.ErrorTypePrivate,
			wantStatus: http.StatusForbidden,
			want:       types.ErrorResponse{Type: string(apperrors.ForbiddenError), Message: "Admin access required", Code: "403"},
		},
		{
			name:       "bind error",
			err:        errors.New("invalid character"),
			errType:    gin.ErrorTypeBind,
			wantStatus: http.StatusBadRequest,
			want:       types.ErrorResponse{Type: "VALIDATION_ERROR", Message: "Invalid request body", Code: "400", Details: "invalid character"},
		},
		{
			name:       "plain error hides details",
			err:        errors.New("boom"),
			errType:    gin.ErrorTypePrivate,
			wantStatus: http.StatusInternalServerError,
			want:       types.ErrorResponse{Type: "SERVER_ERROR", Message: "Internal Server Error", Code: "500"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/", func(c *gin.Context) {
				_ = c.Error(tt.err).SetType(tt.errType)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var got types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
