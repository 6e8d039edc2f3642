package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel carries every lifecycle event.
const DefaultChannel = "formflow:events"

// Config holds configuration for RedisPublisher
type Config struct {
	Channel         string
	PublishTimeout  time.Duration
	EventBufferSize int
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		Channel:         DefaultChannel,
		PublishTimeout:  5 * time.Second,
		EventBufferSize: 100,
	}
}

type metrics struct {
	publishLatency    prometheus.Histogram
	errorCount        *prometheus.CounterVec
	eventCount        *prometheus.CounterVec
	activeSubscribers prometheus.Gauge
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			publishLatency: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "event_publish_duration_seconds",
				Help:    "Time taken to publish events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "event_errors_total",
				Help: "Total number of event-related errors",
			}, []string{"operation", "type"}),
			eventCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "events_total",
				Help: "Total number of events by operation and type",
			}, []string{"operation", "type"}),
			activeSubscribers: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "event_active_subscribers",
				Help: "Current number of active subscribers",
			}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

// RedisPublisher implements Broker over Redis Pub/Sub so every instance's
// review feed sees every event.
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	mu      sync.Mutex
	subs    map[string]*subscription
	wg      sync.WaitGroup
}

type subscription struct {
	pubsub    *redis.PubSub
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) close(log *zap.SugaredLogger, subID string) {
	s.closeOnce.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			log.Errorw("Error closing pubsub", "error", err, "subscriberID", subID)
		}
	})
}

func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
		if config.Channel == "" {
			config.Channel = DefaultChannel
		}
		if config.EventBufferSize <= 0 {
			config.EventBufferSize = DefaultConfig().EventBufferSize
		}
		if config.PublishTimeout <= 0 {
			config.PublishTimeout = DefaultConfig().PublishTimeout
		}
	}
	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
		subs:    make(map[string]*subscription),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	if err := event.Validate(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.config.Channel, data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}
	p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

func (p *RedisPublisher) Subscribe(ctx context.Context, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	p.mu.Lock()
	if _, exists := p.subs[subscriberID]; exists {
		p.mu.Unlock()
		p.metrics.errorCount.WithLabelValues("subscribe", "duplicate").Inc()
		return nil, fmt.Errorf("subscription already exists for %s", subscriberID)
	}
	pubsub := p.rdb.Subscribe(ctx, p.config.Channel)
	subCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pubsub: pubsub, cancel: cancel}
	p.subs[subscriberID] = sub
	p.mu.Unlock()

	// Wait for the subscription confirmation so no event published right
	// after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		p.drop(subscriberID)
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	p.metrics.activeSubscribers.Inc()
	events := make(chan types.Event, p.config.EventBufferSize)
	p.wg.Add(1)
	go p.processMessages(subCtx, sub, events, filters, subscriberID)
	return events, nil
}

func (p *RedisPublisher) processMessages(ctx context.Context, sub *subscription, events chan<- types.Event, filters []types.EventType, subID string) {
	defer p.wg.Done()
	defer func() {
		sub.close(p.log, subID)
		close(events)
		p.metrics.activeSubscribers.Dec()
		p.log.Debugw("Subscription closed", "subscriberID", subID)
	}()

	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event types.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.metrics.errorCount.WithLabelValues("process", "unmarshal").Inc()
				p.log.Errorw("Failed to unmarshal event", "error", err, "subscriberID", subID)
				continue
			}
			if !matches(event, filters) {
				continue
			}
			select {
			case events <- event:
				p.metrics.eventCount.WithLabelValues("receive", string(event.Type)).Inc()
			default:
				p.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
				p.log.Warnw("Dropped event due to full channel", "subscriberID", subID, "eventType", event.Type)
			}
		}
	}
}

func (p *RedisPublisher) drop(subID string) {
	p.mu.Lock()
	sub, ok := p.subs[subID]
	delete(p.subs, subID)
	p.mu.Unlock()
	if ok {
		sub.cancel()
		sub.close(p.log, subID)
	}
}

func (p *RedisPublisher) Unsubscribe(_ context.Context, subscriberID string) error {
	p.mu.Lock()
	_, exists := p.subs[subscriberID]
	p.mu.Unlock()
	if !exists {
		return fmt.Errorf("no subscription found for %s", subscriberID)
	}
	p.drop(subscriberID)
	return nil
}

// Shutdown cancels every subscription and waits for their goroutines.
func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	ids := make([]string, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	p.log.Infow("Shutting down RedisPublisher, cancelling subscriptions...", "count", len(ids))
	for _, id := range ids {
		p.drop(id)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
