// Package events publishes form and submission lifecycle events for live
// review feeds.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
)

// Broker fans lifecycle events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, event types.Event) error
	// Subscribe returns a channel of events matching filters (all when empty).
	// The channel is closed by Unsubscribe or Shutdown.
	Subscribe(ctx context.Context, subscriberID string, filters ...types.EventType) (<-chan types.Event, error)
	Unsubscribe(ctx context.Context, subscriberID string) error
	Shutdown(ctx context.Context) error
}

// NewEvent builds an event with a fresh id and a JSON payload.
func NewEvent(eventType types.EventType, entityType types.EntityType, entityID, userID string, payload interface{}) (types.Event, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return types.Event{}, fmt.Errorf("marshal event payload: %w", err)
		}
		raw = data
	}
	return types.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		EntityID:   entityID,
		EntityType: entityType,
		UserID:     userID,
		Timestamp:  time.Now(),
		Payload:    raw,
	}, nil
}

func matches(event types.Event, filters []types.EventType) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if event.Type == f {
			return true
		}
	}
	return false
}
