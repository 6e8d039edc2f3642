package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"go.uber.org/zap"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	name     string
	critical bool
	check    CheckFunc
}

// HealthService reports the state of the store, Redis and the reporting
// database. A failing critical component marks the service DOWN; any other
// failure marks it DEGRADED.
type HealthService struct {
	mu          sync.RWMutex
	checks      []healthCheck
	outboxDepth func(ctx context.Context) (int64, error)
	version     string
	startTime   time.Time
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewHealthService(version string) *HealthService {
	return &HealthService{
		version:   version,
		startTime: time.Now(),
		timeout:   3 * time.Second,
		log:       logger.GetLogger(),
	}
}

// AddCheck registers a component probe.
func (h *HealthService) AddCheck(name string, critical bool, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, healthCheck{name: name, critical: critical, check: check})
}

// SetOutboxDepth reports the audit outbox backlog in health responses.
func (h *HealthService) SetOutboxDepth(depth func(ctx context.Context) (int64, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outboxDepth = depth
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	h.mu.RLock()
	checks := append([]healthCheck(nil), h.checks...)
	depthFn := h.outboxDepth
	h.mu.RUnlock()

	components := make(map[string]types.HealthComponent, len(checks))
	overallStatus := types.HealthStatusUp

	sort.SliceStable(checks, func(i, j int) bool { return checks[i].name < checks[j].name })
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := c.check(checkCtx)
		cancel()

		if err == nil {
			components[c.name] = types.HealthComponent{Status: types.HealthStatusUp, Critical: c.critical}
			continue
		}
		h.log.Errorw("Health check failed", "component", c.name, "error", err)
		if c.critical {
			components[c.name] = types.HealthComponent{Status: types.HealthStatusDown, Critical: true, Details: c.name + " connection failed"}
			overallStatus = types.HealthStatusDown
			continue
		}
		components[c.name] = types.HealthComponent{Status: types.HealthStatusDegraded, Details: c.name + " unavailable"}
		if overallStatus != types.HealthStatusDown {
			overallStatus = types.HealthStatusDegraded
		}
	}

	result := types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
	if depthFn != nil {
		if depth, err := depthFn(ctx); err == nil {
			result.OutboxDepth = depth
		}
	}
	return result
}

// Liveness is always UP while the process can serve requests.
func (h *HealthService) Liveness() types.HealthComponent {
	return types.HealthComponent{Status: types.HealthStatusUp}
}
