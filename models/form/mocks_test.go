package form

import (
	"context"
	"sync"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertForm(ctx context.Context, form *types.Form) (*types.Form, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Form), args.Error(1)
}

func (m *MockStore) InsertFields(ctx context.Context, formID string, fields []types.FormField) error {
	return m.Called(ctx, formID, fields).Error(0)
}

func (m *MockStore) UpdateForm(ctx context.Context, form *types.Form) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockStore) ReplaceFields(ctx context.Context, formID string, fields []types.FormField) error {
	return m.Called(ctx, formID, fields).Error(0)
}

func (m *MockStore) DeleteForm(ctx context.Context, formID string) error {
	return m.Called(ctx, formID).Error(0)
}

func (m *MockStore) IncrementSubmissionCount(ctx context.Context, formID string) (int, error) {
	args := m.Called(ctx, formID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ListForms(ctx context.Context) ([]*types.Form, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Form), args.Error(1)
}

func (m *MockStore) InsertSubmission(ctx context.Context, sub *types.Submission) (*types.Submission, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Submission), args.Error(1)
}

func (m *MockStore) UpdateSubmission(ctx context.Context, sub *types.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockStore) ListSubmissions(ctx context.Context) ([]*types.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Submission), args.Error(1)
}

func (m *MockStore) InsertAuditLogs(ctx context.Context, logs []types.AuditLog) error {
	return m.Called(ctx, logs).Error(0)
}

func (m *MockStore) ListAuditLogs(ctx context.Context) ([]types.AuditLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AuditLog), args.Error(1)
}

func (m *MockStore) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

func (m *MockStore) UpsertProfile(ctx context.Context, profile *types.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockStore) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Profile), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordedEmail struct {
	mu   sync.Mutex
	sent []types.SubmissionConfirmation
}

func (r *recordedEmail) SendSubmissionConfirmation(_ context.Context, data types.SubmissionConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, data)
	return nil
}

func (r *recordedEmail) SendFormInvitation(context.Context, types.FormInvitation) error {
	return nil
}
