package handlers

import (
	"context"
	"net/http"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by *services.HealthService.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
	Liveness() types.HealthComponent
}

type HealthHandler struct {
	health HealthChecker
}

func NewHealthHandler(health HealthChecker) *HealthHandler {
	return &HealthHandler{health: health}
}

// DetailedHealthHandler godoc
// @Summary Component health
// @Tags health
// @Produce json
// @Success 200 {object} types.HealthCheck
// @Failure 503 {object} types.HealthCheck
// @Router /health [get]
func (h *HealthHandler) DetailedHealthHandler(c *gin.Context) {
	result := h.health.CheckHealth(c.Request.Context())
	status := http.StatusOK
	if result.Status == types.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

func (h *HealthHandler) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Liveness())
}

// ReadinessHandler reports ready unless a critical dependency is down.
func (h *HealthHandler) ReadinessHandler(c *gin.Context) {
	result := h.health.CheckHealth(c.Request.Context())
	if result.Status == types.HealthStatusDown {
		c.JSON(http.StatusServiceUnavailable, types.HealthComponent{Status: result.Status, Details: "not ready"})
		return
	}
	c.JSON(http.StatusOK, types.HealthComponent{Status: result.Status})
}
