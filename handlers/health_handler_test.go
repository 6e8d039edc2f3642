package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/NomadCrew/formflow-backend/services"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandlers(t *testing.T) {
	tests := []struct {
		name          string
		storeErr      error
		redisErr      error
		wantHealth    int
		wantReadiness int
		wantStatus    types.HealthStatus
	}{
		{"all up", nil, nil, http.StatusOK, http.StatusOK, types.HealthStatusUp},
		{"redis down degrades", nil, errors.New("dial tcp"), http.StatusOK, http.StatusOK, types.HealthStatusDegraded},
		{"store down", errors.New("dial tcp"), nil, http.StatusServiceUnavailable, http.StatusServiceUnavailable, types.HealthStatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewHealthService("test")
			svc.AddCheck("store", true, func(context.Context) error { return tt.storeErr })
			svc.AddCheck("redis", false, func(context.Context) error { return tt.redisErr })
			h := NewHealthHandler(svc)

			r := newTestRouter(nil)
			r.GET("/health", h.DetailedHealthHandler)
			r.GET("/health/live", h.LivenessHandler)
			r.GET("/health/ready", h.ReadinessHandler)

			w := doJSON(t, r, http.MethodGet, "/health", nil)
			assert.Equal(t, tt.wantHealth, w.Code)
			var got types.HealthCheck
			decode(t, w, &got)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, "test", got.Version)

			assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/health/live", nil).Code)
			assert.Equal(t, tt.wantReadiness, doJSON(t, r, http.MethodGet, "/health/ready", nil).Code)
		})
	}
}
