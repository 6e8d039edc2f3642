package types

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	EventTypeFormCreated             EventType = "FORM_CREATED"
	EventTypeFormUpdated             EventType = "FORM_UPDATED"
	EventTypeFormStatusUpdated       EventType = "FORM_STATUS_UPDATED"
	EventTypeFormCloned              EventType = "FORM_CLONED"
	EventTypeSubmissionCreated       EventType = "SUBMISSION_CREATED"
	EventTypeSubmissionStatusUpdated EventType = "SUBMISSION_STATUS_UPDATED"
)

// Event is a lifecycle notification published for live review feeds.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	EntityID   string          `json:"entityId"`
	EntityType EntityType      `json:"entityType"`
	UserID     string          `json:"userId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields every published event needs.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.EntityID == "" {
		return errors.New("event entity id is required")
	}
	return nil
}
