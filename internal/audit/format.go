package audit

import (
	"strings"

	"github.com/NomadCrew/formflow-backend/types"
)

var eventLabels = map[types.EntityType]map[types.AuditAction]string{
	types.EntityTypeForm: {
		types.AuditActionCreate:       "Form created",
		types.AuditActionUpdate:       "Form updated",
		types.AuditActionStatusUpdate: "Form status changed",
		types.AuditActionClone:        "Form cloned",
	},
	types.EntityTypeSubmission: {
		types.AuditActionCreate:       "Submission created",
		types.AuditActionStatusUpdate: "Submission status changed",
	},
}

// FormatEvent returns the display label for an audit entry.
func FormatEvent(l types.AuditLog) string {
	if label, ok := eventLabels[l.EntityType][l.Action]; ok {
		return label
	}
	entity := string(l.EntityType)
	if entity != "" {
		entity = strings.ToUpper(entity[:1]) + entity[1:]
	}
	return strings.TrimSpace(entity + " " + strings.ReplaceAll(string(l.Action), "_", " "))
}

// Views decorates entries with their labels.
func Views(logs []types.AuditLog) []types.AuditLogView {
	out := make([]types.AuditLogView, len(logs))
	for i, l := range logs {
		out[i] = types.AuditLogView{AuditLog: l, Event: FormatEvent(l)}
	}
	return out
}
