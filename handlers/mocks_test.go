package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NomadCrew/formflow-backend/internal/publicflow"
	"github.com/NomadCrew/formflow-backend/middleware"
	"github.com/NomadCrew/formflow-backend/services"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFormService struct {
	mock.Mock
}

func (m *MockFormService) GetForm(id string) (*types.Form, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Form), args.Error(1)
}

func (m *MockFormService) GetFormBySlug(slug string) (*types.Form, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Form), args.Error(1)
}

func (m *MockFormService) Search(ctx context.Context, q types.FormSearchQuery) types.FormPage {
	return m.Called(ctx, q).Get(0).(types.FormPage)
}

func (m *MockFormService) Stats() types.FormStats {
	return m.Called().Get(0).(types.FormStats)
}

func (m *MockFormService) CreateForm(ctx context.Context, actor types.Actor, input types.FormInput) (*types.Form, types.Persistence, error) {
	args := m.Called(ctx, actor, input)
	return formResult(args)
}

func (m *MockFormService) UpdateForm(ctx context.Context, actor types.Actor, formID string, input types.FormInput) (*types.Form, types.Persistence, error) {
	args := m.Called(ctx, actor, formID, input)
	return formResult(args)
}

func (m *MockFormService) UpdateFormStatus(ctx context.Context, actor types.Actor, formID string, status types.FormStatus) (*types.Form, types.Persistence, error) {
	args := m.Called(ctx, actor, formID, status)
	return formResult(args)
}

func (m *MockFormService) CloneForm(ctx context.Context, actor types.Actor, formID string) (*types.Form, types.Persistence, error) {
	args := m.Called(ctx, actor, formID)
	return formResult(args)
}

func (m *MockFormService) AuditTrail(entityID string) []types.AuditLog {
	return m.Called(entityID).Get(0).([]types.AuditLog)
}

func (m *MockFormService) RecentAudit(limit int) []types.AuditLog {
	return m.Called(limit).Get(0).([]types.AuditLog)
}

func formResult(args mock.Arguments) (*types.Form, types.Persistence, error) {
	if args.Get(0) == nil {
		return nil, args.Get(1).(types.Persistence), args.Error(2)
	}
	return args.Get(0).(*types.Form), args.Get(1).(types.Persistence), args.Error(2)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) GetSubmission(id string) (*types.Submission, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Submission), args.Error(1)
}

func (m *MockSubmissionService) CreateSubmission(ctx context.Context, userID, formID string, values types.FieldValues, meta *types.SubmissionMetadata) (*types.Submission, types.Persistence, error) {
	args := m.Called(ctx, userID, formID, values, meta)
	return submissionResult(args)
}

func (m *MockSubmissionService) UpdateSubmissionStatus(ctx context.Context, actor types.Actor, id string, status types.SubmissionStatus) (*types.Submission, types.Persistence, error) {
	args := m.Called(ctx, actor, id, status)
	return submissionResult(args)
}

func (m *MockSubmissionService) ListSubmissions(filter types.SubmissionFilter) types.SubmissionPage {
	return m.Called(filter).Get(0).(types.SubmissionPage)
}

func (m *MockSubmissionService) SubmissionsForForm(formID string) []*types.Submission {
	return m.Called(formID).Get(0).([]*types.Submission)
}

func submissionResult(args mock.Arguments) (*types.Submission, types.Persistence, error) {
	if args.Get(0) == nil {
		return nil, args.Get(1).(types.Persistence), args.Error(2)
	}
	return args.Get(0).(*types.Submission), args.Get(1).(types.Persistence), args.Error(2)
}

// inlineDispatcher runs jobs synchronously.
type inlineDispatcher struct {
	refuse bool
	ran    []string
}

func (d *inlineDispatcher) Go(name string, fn func(ctx context.Context) error) bool {
	if d.refuse {
		return false
	}
	d.ran = append(d.ran, name)
	_ = fn(context.Background())
	return true
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendSubmissionConfirmation(ctx context.Context, data types.SubmissionConfirmation) error {
	return m.Called(ctx, data).Error(0)
}

func (m *MockEmailService) SendFormInvitation(ctx context.Context, data types.FormInvitation) error {
	return m.Called(ctx, data).Error(0)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockExporter) ExportSubmissions(ctx context.Context, f *types.Form, subs []*types.Submission) (*services.ExportResult, error) {
	args := m.Called(ctx, f, subs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExportResult), args.Error(1)
}

type MockDraftSaver struct {
	mock.Mock
}

func (m *MockDraftSaver) Save(key publicflow.DraftKey, values types.FieldValues, startTime time.Time) {
	m.Called(key, values, startTime)
}

func (m *MockDraftSaver) Cancel(ctx context.Context, key publicflow.DraftKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockDraftSaver) Pending(key publicflow.DraftKey) (publicflow.Draft, bool) {
	args := m.Called(key)
	return args.Get(0).(publicflow.Draft), args.Bool(1)
}

type MockUserAdmin struct {
	mock.Mock
}

func (m *MockUserAdmin) ListUsers(ctx context.Context) ([]types.ManagedUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ManagedUser), args.Error(1)
}

func (m *MockUserAdmin) InviteUser(ctx context.Context, email string, role types.UserRole) (*types.ManagedUser, error) {
	args := m.Called(ctx, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ManagedUser), args.Error(1)
}

func (m *MockUserAdmin) UpdateRole(ctx context.Context, userID string, role types.UserRole) (*types.ManagedUser, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ManagedUser), args.Error(1)
}

func (m *MockUserAdmin) DeleteUser(ctx context.Context, actor types.Actor, userID string) error {
	return m.Called(ctx, actor, userID).Error(0)
}

var (
	_ FormService        = (*MockFormService)(nil)
	_ SubmissionService  = (*MockSubmissionService)(nil)
	_ Dispatcher         = (*inlineDispatcher)(nil)
	_ Exporter           = (*MockExporter)(nil)
	_ DraftSaver         = (*MockDraftSaver)(nil)
	_ UserAdmin          = (*MockUserAdmin)(nil)
	_ types.EmailService = (*MockEmailService)(nil)
)

const (
	testFormID  = "11111111-1111-1111-1111-111111111111"
	testSubID   = "22222222-2222-2222-2222-222222222222"
	staffUserID = "33333333-3333-3333-3333-333333333333"
	adminUserID = "44444444-4444-4444-4444-444444444444"
)

var (
	staffActor = types.Actor{ID: staffUserID, Email: "staff@example.com", Role: types.UserRoleStaff}
	adminActor = types.Actor{ID: adminUserID, Email: "admin@example.com", Role: types.UserRoleAdmin}
)

// newTestRouter mounts the error handler and, when actor is set, an
// authenticated caller.
func newTestRouter(actor *types.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set(middleware.UserIDKey, actor.ID)
			c.Set(middleware.ActorKey, *actor)
		}
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func sampleForm(status types.FormStatus) *types.Form {
	return &types.Form{
		ID:        testFormID,
		Title:     "Volunteer signup",
		Slug:      "volunteer-signup",
		Status:    status,
		CreatedBy: staffUserID,
		Fields: []types.FormField{
			{ID: "name", Label: "Name", Type: types.FieldTypeText, Required: true},
			{ID: "email", Label: "Email", Type: types.FieldTypeEmail, Required: true},
			{ID: "shift", Label: "Shift", Type: types.FieldTypeSelect, Options: []string{"am", "pm"}},
			{ID: "notes", Label: "Notes", Type: types.FieldTypeTextarea},
		},
	}
}
