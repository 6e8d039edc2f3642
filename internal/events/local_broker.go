package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
)

// LocalBroker is an in-process Broker used when Redis is disabled. It only
// reaches subscribers of this instance.
type LocalBroker struct {
	mu         sync.RWMutex
	subs       map[string]localSub
	bufferSize int
}

type localSub struct {
	ch      chan types.Event
	filters []types.EventType
}

func NewLocalBroker(bufferSize int) *LocalBroker {
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().EventBufferSize
	}
	return &LocalBroker{subs: make(map[string]localSub), bufferSize: bufferSize}
}

func (b *LocalBroker) Publish(_ context.Context, event types.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !matches(event, sub.filters) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(_ context.Context, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subs[subscriberID]; exists {
		return nil, fmt.Errorf("subscription already exists for %s", subscriberID)
	}
	ch := make(chan types.Event, b.bufferSize)
	b.subs[subscriberID] = localSub{ch: ch, filters: filters}
	return ch, nil
}

func (b *LocalBroker) Unsubscribe(_ context.Context, subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[subscriberID]
	if !ok {
		return fmt.Errorf("no subscription found for %s", subscriberID)
	}
	delete(b.subs, subscriberID)
	close(sub.ch)
	return nil
}

func (b *LocalBroker) Shutdown(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	return nil
}
