package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/middleware"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// abort attaches err for the error middleware and stops the chain.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// requireActor returns the authenticated caller or aborts with 401.
func requireActor(c *gin.Context) (types.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.ID == "" {
		abort(c, apperrors.Unauthorized("missing_auth", "Authentication required"))
		return types.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, apperrors.ValidationFailed("Invalid request body", err.Error()))
		return false
	}
	return true
}

// respondMutation writes a create or update result with its persistence
// outcome.
func respondMutation(c *gin.Context, status int, data interface{}, persistence types.Persistence) {
	c.JSON(status, types.MutationResponse{Data: data, Persistence: persistence})
}

// canManage reports whether actor may share or export f.
func canManage(actor types.Actor, f *types.Form) bool {
	return actor.IsAdmin() || f.CreatedBy == actor.ID
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
