package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/gin-gonic/gin"
)

// Limiter counts requests per key within a window.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimit limits each client IP to limit requests per window under scope.
// Redis failures let the request through.
func RateLimit(limiter Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())
		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds <= 0 {
				seconds = int(window.Seconds())
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			_ = c.Error(apperrors.RateLimitExceeded("Too many requests. Please try again later.",
				fmt.Sprintf("retry after %d seconds", seconds)))
			c.Abort()
			return
		}
		c.Next()
	}
}
