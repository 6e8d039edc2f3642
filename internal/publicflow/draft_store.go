package publicflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/redis/go-redis/v9"
)

const draftKeyPrefix = "formflow:draft:"

// ErrNoDraft is returned when no draft is stored for a key.
var ErrNoDraft = errors.New("draft not found")

// Draft is a respondent's in-progress answers.
type Draft struct {
	FormID       string            `json:"formId"`
	RespondentID string            `json:"respondentId"`
	Values       types.FieldValues `json:"values"`
	StartTime    time.Time         `json:"startTime"`
	LastSaved    time.Time         `json:"lastSaved"`
}

// Metadata returns the envelope attached at submit.
func (d *Draft) Metadata(submitTime time.Time) *types.SubmissionMetadata {
	meta := &types.SubmissionMetadata{SubmitTime: &submitTime}
	if !d.StartTime.IsZero() {
		start := d.StartTime
		meta.StartTime = &start
	}
	if !d.LastSaved.IsZero() {
		saved := d.LastSaved
		meta.LastSaved = &saved
	}
	return meta
}

// DraftKey identifies one respondent's draft of one form.
type DraftKey struct {
	FormID       string
	RespondentID string
}

func (k DraftKey) String() string {
	return fmt.Sprintf("%s%s:%s", draftKeyPrefix, k.FormID, k.RespondentID)
}

type DraftStore interface {
	Save(ctx context.Context, draft Draft) error
	Load(ctx context.Context, key DraftKey) (*Draft, error)
	Delete(ctx context.Context, key DraftKey) error
}

// RedisDraftStore keeps drafts as JSON strings that expire after ttl.
type RedisDraftStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDraftStore(rdb redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb, ttl: ttl}
}

func (s *RedisDraftStore) Save(ctx context.Context, draft Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	key := DraftKey{FormID: draft.FormID, RespondentID: draft.RespondentID}
	if err := s.rdb.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Load(ctx context.Context, key DraftKey) (*Draft, error) {
	data, err := s.rdb.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoDraft
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		// Unreadable drafts are discarded rather than blocking the respondent.
		s.rdb.Del(ctx, key.String())
		return nil, ErrNoDraft
	}
	return &draft, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, key DraftKey) error {
	if err := s.rdb.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// MemoryDraftStore is used when Redis is disabled. Entries expire lazily.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[DraftKey]memoryDraft
}

type memoryDraft struct {
	draft   Draft
	expires time.Time
}

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{ttl: ttl, now: time.Now, drafts: make(map[DraftKey]memoryDraft)}
}

func (s *MemoryDraftStore) Save(_ context.Context, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft.Values = draft.Values.Copy()
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.drafts[DraftKey{FormID: draft.FormID, RespondentID: draft.RespondentID}] = memoryDraft{draft: draft, expires: expires}
	return nil
}

func (s *MemoryDraftStore) Load(_ context.Context, key DraftKey) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.drafts[key]
	if !ok {
		return nil, ErrNoDraft
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.drafts, key)
		return nil, ErrNoDraft
	}
	draft := entry.draft
	draft.Values = draft.Values.Copy()
	return &draft, nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, key DraftKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
