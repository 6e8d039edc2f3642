package form

import "github.com/NomadCrew/formflow-backend/types"

// AuditTrail returns the entries recorded for entityID, oldest first.
func (m *FormModel) AuditTrail(entityID string) []types.AuditLog {
	return m.ctx.State.Snapshot().AuditLogsFor(entityID)
}

// RecentAudit returns up to limit entries across all entities, newest first.
func (m *FormModel) RecentAudit(limit int) []types.AuditLog {
	logs := m.ctx.State.Snapshot().AuditLogs
	if limit <= 0 || limit > len(logs) {
		limit = len(logs)
	}
	out := make([]types.AuditLog, 0, limit)
	for i := len(logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, logs[i])
	}
	return out
}
