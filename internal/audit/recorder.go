// Package audit records append-only change history for forms and
// submissions. Entries land in local state at once and reach the store
// through a retrying outbox.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists audit batches. Inserts must be idempotent on id.
type Store interface {
	InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error
}

// Appender receives entries for the local state.
type Appender interface {
	Dispatch(cmds ...state.Command) state.State
}

type Config struct {
	BatchSize     int
	MaxAttempts   int
	DrainInterval time.Duration
}

func DefaultConfig() Config {
	return Config{BatchSize: 50, MaxAttempts: 5, DrainInterval: 2 * time.Second}
}

// Entry describes one change.
type Entry struct {
	EntityID      string
	EntityType    types.EntityType
	Action        types.AuditAction
	PreviousValue *string
	NewValue      string
}

type Recorder struct {
	local   Appender
	outbox  Outbox
	store   Store
	config  Config
	log     *zap.SugaredLogger
	metrics *metrics

	drainMu  sync.Mutex
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewRecorder(local Appender, outbox Outbox, store Store, cfg Config) *Recorder {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = def.DrainInterval
	}
	return &Recorder{
		local:   local,
		outbox:  outbox,
		store:   store,
		config:  cfg,
		log:     logger.GetLogger().Named("audit"),
		metrics: newMetrics(),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
}

// Record appends the entry to local state and queues it for persistence.
// It never fails the caller: outbox problems are logged and the entry is
// written directly as a last resort.
func (r *Recorder) Record(ctx context.Context, userID string, e Entry) types.AuditLog {
	l := types.AuditLog{
		ID:            uuid.NewString(),
		EntityID:      e.EntityID,
		EntityType:    e.EntityType,
		UserID:        userID,
		Action:        e.Action,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		Timestamp:     r.now(),
	}
	r.local.Dispatch(state.AuditAppended{Log: l})

	if err := r.outbox.Push(ctx, Envelope{Log: l}); err != nil {
		r.log.Warnw("Audit outbox unavailable, writing entry directly", "error", err, "entityID", l.EntityID)
		if err := r.store.InsertAuditLogs(ctx, []types.AuditLog{l}); err != nil {
			r.metrics.failed.Inc()
			r.log.Errorw("Failed to persist audit entry", "error", err, "entityID", l.EntityID, "action", l.Action)
		} else {
			r.metrics.persisted.Inc()
		}
		return l
	}
	r.metrics.outboxDepth.Inc()
	return l
}

// Drain persists one batch. Entries of a failed batch are requeued with an
// incremented attempt count, or dead-lettered once MaxAttempts is reached.
func (r *Recorder) Drain(ctx context.Context) (int, error) {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()
	return r.drainLocked(ctx)
}

func (r *Recorder) drainLocked(ctx context.Context) (int, error) {
	defer r.refreshDepth(ctx)

	batch, err := r.outbox.Pop(ctx, r.config.BatchSize)
	if err != nil || len(batch) == 0 {
		return 0, err
	}

	logs := make([]types.AuditLog, len(batch))
	for i, env := range batch {
		logs[i] = env.Log
	}
	if err := r.store.InsertAuditLogs(ctx, logs); err != nil {
		r.metrics.failed.Inc()
		r.requeue(ctx, batch)
		return 0, err
	}
	r.metrics.persisted.Add(float64(len(logs)))
	return len(logs), nil
}

func (r *Recorder) requeue(ctx context.Context, batch []Envelope) {
	retry := make([]Envelope, 0, len(batch))
	for _, env := range batch {
		env.Attempts++
		if env.Attempts >= r.config.MaxAttempts {
			r.metrics.deadLettered.Inc()
			r.log.Errorw("Audit entry exhausted retries", "auditID", env.Log.ID, "attempts", env.Attempts)
			if err := r.outbox.DeadLetter(ctx, env); err != nil {
				r.log.Errorw("Failed to dead-letter audit entry", "error", err, "auditID", env.Log.ID)
			}
			continue
		}
		retry = append(retry, env)
	}
	if err := r.outbox.Push(ctx, retry...); err != nil {
		r.log.Errorw("Failed to requeue audit entries", "error", err, "count", len(retry))
	}
}

func (r *Recorder) refreshDepth(ctx context.Context) {
	if n, err := r.outbox.Len(ctx); err == nil {
		r.metrics.outboxDepth.Set(float64(n))
	}
}

// Flush drains until the outbox is empty or a batch fails.
func (r *Recorder) Flush(ctx context.Context) error {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.drainLocked(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// Depth reports the number of queued entries.
func (r *Recorder) Depth(ctx context.Context) (int64, error) {
	return r.outbox.Len(ctx)
}

// Start runs the background drainer until Stop is called.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.config.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), r.config.DrainInterval)
				if err := r.Flush(ctx); err != nil {
					r.log.Warnw("Audit drain failed, will retry", "error", err)
				}
				cancel()
			}
		}
	}()
}

// Stop ends the drainer and makes a final flush bounded by ctx.
func (r *Recorder) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.Flush(ctx)
}
