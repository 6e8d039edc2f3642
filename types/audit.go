package types

import "time"

type EntityType string

const (
	EntityTypeForm       EntityType = "form"
	EntityTypeSubmission EntityType = "submission"
)

type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionStatusUpdate AuditAction = "status_update"
	AuditActionClone        AuditAction = "clone"
)

// AuditLog is an append-only record of a change to a form or submission.
type AuditLog struct {
	ID            string      `json:"id"`
	EntityID      string      `json:"entityId"`
	EntityType    EntityType  `json:"entityType"`
	UserID        string      `json:"userId"`
	Action        AuditAction `json:"action"`
	PreviousValue *string     `json:"previousValue,omitempty"`
	NewValue      string      `json:"newValue"`
	Timestamp     time.Time   `json:"timestamp"`
}

// AuditLogView is an audit entry with its display label.
type AuditLogView struct {
	AuditLog
	Event string `json:"event"`
}
