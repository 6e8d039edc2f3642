package middleware

import (
	"strings"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets browser hardening headers. HSTS is only sent
// in production. Form and API responses carry respondent or reviewer data and
// are never cached.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/v1/") || strings.HasPrefix(path, "/form/") {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}
