package types

type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// HealthComponent is one dependency's result. A critical component that is
// DOWN takes the whole service DOWN; anything else only degrades it.
type HealthComponent struct {
	Status   HealthStatus `json:"status"`
	Critical bool         `json:"critical"`
	Details  string       `json:"details,omitempty"`
}

type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	// OutboxDepth is the number of audit entries not yet persisted remotely.
	OutboxDepth int64 `json:"auditOutboxDepth"`
}
