package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error {
	args := m.Called(ctx, logs)
	return args.Error(0)
}

type failingOutbox struct {
	*MemoryOutbox
}

func (failingOutbox) Push(context.Context, ...Envelope) error {
	return errors.New("redis down")
}

func newTestRecorder(t *testing.T, outbox Outbox, st Store, cfg Config) (*Recorder, *state.Manager) {
	t.Helper()
	resetMetricsForTesting()
	mgr := state.NewManager()
	return NewRecorder(mgr, outbox, st, cfg), mgr
}

func statusEntry(prev, next string) Entry {
	return Entry{
		EntityID:      "form-1",
		EntityType:    types.EntityTypeForm,
		Action:        types.AuditActionStatusUpdate,
		PreviousValue: &prev,
		NewValue:      next,
	}
}

func TestRecorder_RecordAndFlush(t *testing.T) {
	st := new(mockStore)
	outbox := NewMemoryOutbox()
	rec, mgr := newTestRecorder(t, outbox, st, Config{BatchSize: 10, MaxAttempts: 3})

	first := rec.Record(context.Background(), "admin", statusEntry("draft", "pending"))
	second := rec.Record(context.Background(), "admin", statusEntry("pending", "approved"))

	logs := mgr.Snapshot().AuditLogsFor("form-1")
	require.Len(t, logs, 2, "local state updated synchronously")
	assert.Equal(t, first.ID, logs[0].ID)
	assert.Equal(t, "admin", logs[1].UserID)
	assert.NotEqual(t, first.ID, second.ID)

	st.On("InsertAuditLogs", mock.Anything, mock.MatchedBy(func(l []types.AuditLog) bool {
		return len(l) == 2 && l[0].ID == first.ID && l[1].ID == second.ID
	})).Return(nil).Once()

	require.NoError(t, rec.Flush(context.Background()))
	depth, _ := rec.Depth(context.Background())
	assert.Zero(t, depth)
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.metrics.persisted))
	st.AssertExpectations(t)
}

func TestRecorder_RetryThenDeadLetter(t *testing.T) {
	st := new(mockStore)
	outbox := NewMemoryOutbox()
	rec, mgr := newTestRecorder(t, outbox, st, Config{BatchSize: 10, MaxAttempts: 2})

	st.On("InsertAuditLogs", mock.Anything, mock.Anything).Return(errors.New("permission denied"))

	rec.Record(context.Background(), "u1", Entry{
		EntityID: "sub-1", EntityType: types.EntityTypeSubmission, Action: types.AuditActionCreate, NewValue: "pending",
	})

	assert.Error(t, rec.Flush(context.Background()))
	depth, _ := outbox.Len(context.Background())
	assert.Equal(t, int64(1), depth, "requeued after first failure")

	assert.Error(t, rec.Flush(context.Background()))
	depth, _ = outbox.Len(context.Background())
	assert.Zero(t, depth)
	dead := outbox.Dead()
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Attempts)

	assert.Len(t, mgr.Snapshot().AuditLogs, 1, "remote failure never removes the local entry")
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.metrics.deadLettered))
}

func TestRecorder_OutboxUnavailableWritesDirectly(t *testing.T) {
	st := new(mockStore)
	rec, _ := newTestRecorder(t, failingOutbox{NewMemoryOutbox()}, st, Config{})
	st.On("InsertAuditLogs", mock.Anything, mock.MatchedBy(func(l []types.AuditLog) bool {
		return len(l) == 1 && l[0].NewValue == "draft"
	})).Return(nil).Once()

	l := rec.Record(context.Background(), "u1", Entry{
		EntityID: "form-9", EntityType: types.EntityTypeForm, Action: types.AuditActionCreate, NewValue: "draft",
	})
	assert.Nil(t, l.PreviousValue)
	st.AssertExpectations(t)
}

func TestRecorder_StartStop(t *testing.T) {
	st := new(mockStore)
	rec, _ := newTestRecorder(t, NewMemoryOutbox(), st, Config{DrainInterval: 10 * time.Millisecond})
	st.On("InsertAuditLogs", mock.Anything, mock.Anything).Return(nil)

	rec.Start()
	rec.Record(context.Background(), "u1", statusEntry("draft", "pending"))

	assert.Eventually(t, func() bool {
		n, _ := rec.Depth(context.Background())
		return n == 0
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Stop(ctx))
	require.NoError(t, rec.Stop(ctx), "stop is idempotent")
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		entity types.EntityType
		action types.AuditAction
		want   string
	}{
		{types.EntityTypeForm, types.AuditActionCreate, "Form created"},
		{types.EntityTypeForm, types.AuditActionUpdate, "Form updated"},
		{types.EntityTypeForm, types.AuditActionStatusUpdate, "Form status changed"},
		{types.EntityTypeForm, types.AuditActionClone, "Form cloned"},
		{types.EntityTypeSubmission, types.AuditActionCreate, "Submission created"},
		{types.EntityTypeSubmission, types.AuditActionStatusUpdate, "Submission status changed"},
		{types.EntityTypeSubmission, "archive_all", "Submission archive all"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(types.AuditLog{EntityType: tt.entity, Action: tt.action}))
		})
	}

	views := Views([]types.AuditLog{{EntityType: types.EntityTypeForm, Action: types.AuditActionCreate}})
	assert.Equal(t, "Form created", views[0].Event)
}
