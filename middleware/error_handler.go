package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached to the context as
// {type, message, code, details}.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		err := last.Err

		if appErr, ok := apperrors.As(err); ok {
			status := appErr.GetHTTPStatus()
			logger.LogHTTPError(c, err, status, fmt.Sprintf("%s error", appErr.Type))

			resp := types.ErrorResponse{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Code:    strconv.Itoa(status),
			}
			if appErr.Detail != "" && showDetails(appErr.Type) {
				resp.Details = appErr.Detail
			}
			c.JSON(status, resp)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Type:    string(apperrors.ValidationError),
				Message: "Invalid request body",
				Code:    strconv.Itoa(http.StatusBadRequest),
				Details: err.Error(),
			})
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
		resp := types.ErrorResponse{
			Type:    string(apperrors.ServerError),
			Message: "Internal Server Error",
			Code:    strconv.Itoa(http.StatusInternalServerError),
		}
		if gin.IsDebugging() {
			resp.Details = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func showDetails(t apperrors.ErrorType) bool {
	switch t {
	case apperrors.ValidationError, apperrors.NotFoundError, apperrors.FormLockedError,
		apperrors.InvalidStatusTransitionError, apperrors.ConflictError, apperrors.RateLimitError:
		return true
	}
	return gin.IsDebugging()
}
