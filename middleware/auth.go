package middleware

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// RoleResolver maps an authenticated user to an application role.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID, email string) types.UserRole
}

// AuthMiddleware validates the bearer token and stores the caller as a
// types.Actor. WebSocket upgrades may pass the token as ?token= because
// browsers cannot set headers on them.
func AuthMiddleware(validator Validator, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		token := bearerToken(c)
		if token == "" {
			_ = c.Error(apperrors.Unauthorized("missing_token", "Authorization required"))
			c.Abort()
			return
		}

		claims, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			log.Warnw("Invalid JWT token",
				"error", err,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			if errors.Is(err, ErrTokenExpired) {
				_ = c.Error(apperrors.Unauthorized("token_expired", "Your session has expired"))
			} else {
				_ = c.Error(apperrors.Unauthorized("invalid_token", "Invalid authentication token"))
			}
			c.Abort()
			return
		}

		role := types.UserRoleStaff
		if roles != nil {
			role = roles.ResolveRole(c.Request.Context(), claims.UserID, claims.Email)
		}
		actor := types.Actor{ID: claims.UserID, Email: claims.Email, Role: role}

		c.Set(UserIDKey, actor.ID)
		c.Set(UserEmailKey, actor.Email)
		c.Set(ActorKey, actor)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

// RequireAdmin rejects callers whose resolved role is not admin. It must run
// after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			_ = c.Error(apperrors.Unauthorized("missing_auth", "Authentication required"))
			c.Abort()
			return
		}
		if !actor.IsAdmin() {
			_ = c.Error(apperrors.Forbidden("Admin access required", c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}
