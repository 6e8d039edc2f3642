package middleware

import (
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// Keys stored on the gin context by the auth middleware.
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	ActorKey     = "actor"
)

// ActorFrom returns the authenticated caller set by Auth.
func ActorFrom(c *gin.Context) (types.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return types.Actor{}, false
	}
	actor, ok := v.(types.Actor)
	return actor, ok
}
