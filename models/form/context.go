// Package form implements the form and submission lifecycles over the local
// state and the remote store.
package form

import (
	"context"
	"time"

	"github.com/NomadCrew/formflow-backend/internal/audit"
	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
)

// AuditRecorder is satisfied by *audit.Recorder.
type AuditRecorder interface {
	Record(ctx context.Context, userID string, e audit.Entry) types.AuditLog
}

// EventPublisher is satisfied by every events.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event) error
}

// Dispatcher runs background work such as emails and event publishing.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

// ModelContext carries the dependencies shared by the form and submission
// models. Events, Jobs, Email and Searcher are optional.
type ModelContext struct {
	Store  store.Store
	State  *state.Manager
	Audit  AuditRecorder
	Events EventPublisher
	Jobs   Dispatcher
	Email  types.EmailService
	// Searcher runs form search in the database. Nil searches local state.
	Searcher store.FormSearcher

	now func() time.Time
}

func (c *ModelContext) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// background runs fn on the dispatcher, or inline when there is none.
func (c *ModelContext) background(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if c.Jobs != nil {
		if !c.Jobs.Go(name, fn) {
			logger.GetLogger().Warnw("Background job dropped", "job", name)
		}
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		logger.GetLogger().Warnw("Background job failed", "job", name, "error", err)
	}
}

func (c *ModelContext) publish(ctx context.Context, eventType types.EventType, entityType types.EntityType, entityID, userID string, payload interface{}) {
	if c.Events == nil {
		return
	}
	event, err := newEvent(eventType, entityType, entityID, userID, payload)
	if err != nil {
		logger.GetLogger().Warnw("Failed to build event", "type", eventType, "error", err)
		return
	}
	c.background(ctx, "publish "+string(eventType), func(ctx context.Context) error {
		return c.Events.Publish(ctx, event)
	})
}

// remoteFailed logs a store failure that is being absorbed into local-only state.
func remoteFailed(op, entityID string, err error) {
	log := logger.GetLogger()
	if store.IsPermissionDenied(err) {
		log.Warnw("Remote store denied access, keeping change locally", "operation", op, "entityID", entityID, "error", err)
		return
	}
	log.Errorw("Remote store failed, keeping change locally", "operation", op, "entityID", entityID, "error", err)
}

func strPtr(s string) *string {
	return &s
}
