package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/redis/go-redis/v9"
)

// Envelope is an outbox entry: the audit log plus its delivery attempts.
type Envelope struct {
	Log      types.AuditLog `json:"log"`
	Attempts int            `json:"attempts"`
}

// Outbox is a durable FIFO of audit entries awaiting persistence.
type Outbox interface {
	Push(ctx context.Context, envs ...Envelope) error
	// Pop removes and returns up to n entries from the head.
	Pop(ctx context.Context, n int) ([]Envelope, error)
	DeadLetter(ctx context.Context, env Envelope) error
	Len(ctx context.Context) (int64, error)
}

// RedisOutbox keeps entries in a Redis list so they survive restarts.
type RedisOutbox struct {
	rdb     redis.Cmdable
	key     string
	deadKey string
}

func NewRedisOutbox(rdb redis.Cmdable, key string) *RedisOutbox {
	return &RedisOutbox{rdb: rdb, key: key, deadKey: key + ":dead"}
}

func encode(envs []Envelope) ([]interface{}, error) {
	out := make([]interface{}, len(envs))
	for i, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal audit envelope: %w", err)
		}
		out[i] = string(data)
	}
	return out, nil
}

func (o *RedisOutbox) Push(ctx context.Context, envs ...Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	values, err := encode(envs)
	if err != nil {
		return err
	}
	if err := o.rdb.RPush(ctx, o.key, values...).Err(); err != nil {
		return fmt.Errorf("push audit outbox: %w", err)
	}
	return nil
}

func (o *RedisOutbox) Pop(ctx context.Context, n int) ([]Envelope, error) {
	raw, err := o.rdb.LPopCount(ctx, o.key, n).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop audit outbox: %w", err)
	}
	envs := make([]Envelope, 0, len(raw))
	for _, item := range raw {
		var env Envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			// unreadable entries can never be delivered; park them
			_ = o.rdb.RPush(ctx, o.deadKey, item).Err()
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (o *RedisOutbox) DeadLetter(ctx context.Context, env Envelope) error {
	values, err := encode([]Envelope{env})
	if err != nil {
		return err
	}
	return o.rdb.RPush(ctx, o.deadKey, values...).Err()
}

func (o *RedisOutbox) Len(ctx context.Context) (int64, error) {
	return o.rdb.LLen(ctx, o.key).Result()
}

// MemoryOutbox is used when Redis is disabled. Entries are lost on restart.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []Envelope
	dead    []Envelope
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (o *MemoryOutbox) Push(_ context.Context, envs ...Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, envs...)
	return nil
}

func (o *MemoryOutbox) Pop(_ context.Context, n int) ([]Envelope, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n > len(o.entries) {
		n = len(o.entries)
	}
	out := append([]Envelope(nil), o.entries[:n]...)
	o.entries = o.entries[n:]
	return out, nil
}

func (o *MemoryOutbox) DeadLetter(_ context.Context, env Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dead = append(o.dead, env)
	return nil
}

func (o *MemoryOutbox) Len(context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.entries)), nil
}

// Dead returns a copy of the dead-lettered entries.
func (o *MemoryOutbox) Dead() []Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Envelope(nil), o.dead...)
}
