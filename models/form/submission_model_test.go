package form

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func approvedForm() *types.Form {
	return &types.Form{
		ID:     "form-1",
		Title:  "Event Signup",
		Slug:   "event-signup",
		Status: types.FormStatusApproved,
		Fields: []types.FormField{
			{ID: "name", Type: types.FieldTypeText, Label: "Name", Required: true},
			{ID: "mail", Type: types.FieldTypeEmail, Label: "Email"},
			{ID: "meal", Type: types.FieldTypeRadio, Label: "Meal", Options: []string{"Veg", "Fish"}},
		},
	}
}

func insertedSubmission(id string) func(*types.Submission) *types.Submission {
	return func(s *types.Submission) *types.Submission {
		out := s.Copy()
		out.ID = id
		out.CreatedAt = fixedNow
		out.UpdatedAt = fixedNow
		return out
	}
}

func TestCreateSubmission(t *testing.T) {
	mc, st := newTestContext(t)
	email := &recordedEmail{}
	mc.Email = email
	seedForm(mc, approvedForm())
	model := NewSubmissionModel(mc)
	ctx := context.Background()

	start := fixedNow.Add(-5 * time.Minute)
	values := types.FieldValues{
		"name":   "Ada",
		"mail":   "ada@example.com",
		"meal":   "Veg",
		"bogus":  "dropped",
		"__meta": map[string]interface{}{"startTime": start.Format(time.RFC3339Nano)},
	}

	st.On("InsertSubmission", ctx, mock.MatchedBy(func(s *types.Submission) bool {
		_, hasBogus := s.Values["bogus"]
		_, hasMeta := s.Values[types.MetaKey]
		return s.Status == types.SubmissionStatusPending && !hasBogus && !hasMeta &&
			s.Metadata != nil && s.Metadata.StartTime != nil
	})).Return(insertedSubmission("sub-1")(&types.Submission{
		FormID: "form-1", UserID: types.AnonymousUserID, Status: types.SubmissionStatusPending,
		Values: types.FieldValues{"name": "Ada", "mail": "ada@example.com", "meal": "Veg"},
	}), nil).Once()
	st.On("IncrementSubmissionCount", ctx, "form-1").Return(1, nil).Once()

	sub, persistence, err := model.CreateSubmission(ctx, "", "form-1", values, nil)
	require.NoError(t, err)
	assert.Equal(t, types.PersistedRemote, persistence)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, types.AnonymousUserID, sub.UserID)

	snap := mc.State.Snapshot()
	f, _ := snap.FormByID("form-1")
	assert.Equal(t, 1, f.SubmissionCount)
	assert.Equal(t, snap.SubmissionCount("form-1"), f.SubmissionCount)

	logs := snap.AuditLogsFor("sub-1")
	require.Len(t, logs, 1)
	assert.Equal(t, "pending", logs[0].NewValue)
	assert.Nil(t, logs[0].PreviousValue)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "ada@example.com", email.sent[0].Email)
	assert.Equal(t, "Event Signup", email.sent[0].FormTitle)
	assert.Equal(t, "Veg", email.sent[0].SubmissionData["Meal"])
	st.AssertExpectations(t)
}

func TestCreateSubmission_CountFailureIsLocalOnly(t *testing.T) {
	mc, st := newTestContext(t)
	seedForm(mc, approvedForm())
	model := NewSubmissionModel(mc)
	ctx := context.Background()

	st.On("InsertSubmission", ctx, mock.Anything).Return(insertedSubmission("sub-1")(&types.Submission{
		FormID: "form-1", UserID: types.AnonymousUserID, Status: types.SubmissionStatusPending,
		Values: types.FieldValues{"name": "Ada"},
	}), nil).Once()
	st.On("IncrementSubmissionCount", ctx, "form-1").Return(0, errors.New("connection reset")).Once()

	sub, persistence, err := model.CreateSubmission(ctx, "", "form-1", types.FieldValues{"name": "Ada"}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.PersistedLocalOnly, persistence)
	assert.Equal(t, "sub-1", sub.ID)

	f, _ := mc.State.Snapshot().FormByID("form-1")
	assert.Equal(t, 1, f.SubmissionCount)
	st.AssertExpectations(t)
}

func TestCreateSubmission_MissingRequiredFieldBlocks(t *testing.T) {
	mc, st := newTestContext(t)
	seedForm(mc, approvedForm())
	model := NewSubmissionModel(mc)

	_, _, err := model.CreateSubmission(context.Background(), "", "form-1", types.FieldValues{"meal": "Fish"}, nil)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Please fill in the required field: Name", appErr.Message)

	snap := mc.State.Snapshot()
	assert.Empty(t, snap.Submissions)
	assert.Empty(t, snap.AuditLogs)
	st.AssertExpectations(t)
}

func TestCreateSubmission_UnknownForm(t *testing.T) {
	mc, _ := newTestContext(t)
	_, _, err := NewSubmissionModel(mc).CreateSubmission(context.Background(), "", "nope", types.FieldValues{}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
}

func TestCreateSubmission_RemoteFailureKeepsCountsConsistent(t *testing.T) {
	mc, st := newTestContext(t)
	seedForm(mc, approvedForm())
	model := NewSubmissionModel(mc)
	ctx := context.Background()

	st.On("InsertSubmission", ctx, mock.Anything).Return(nil, errors.New("offline"))

	for i := 0; i < 3; i++ {
		_, persistence, err := model.CreateSubmission(ctx, "user-1", "form-1", types.FieldValues{"name": fmt.Sprint(i)}, nil)
		require.NoError(t, err)
		assert.Equal(t, types.PersistedLocalOnly, persistence)
	}

	snap := mc.State.Snapshot()
	f, _ := snap.FormByID("form-1")
	assert.Equal(t, 3, f.SubmissionCount)
	assert.Equal(t, 3, snap.SubmissionCount("form-1"))
	st.AssertNotCalled(t, "IncrementSubmissionCount", mock.Anything, mock.Anything)
}

func seedSubmission(mc *ModelContext, sub *types.Submission) {
	mc.State.Dispatch(state.SubmissionCreated{Submission: sub})
}

func TestUpdateSubmissionStatus(t *testing.T) {
	mc, st := newTestContext(t)
	seedForm(mc, approvedForm())
	seedSubmission(mc, &types.Submission{ID: "sub-1", FormID: "form-1", Status: types.SubmissionStatusPending})
	model := NewSubmissionModel(mc)
	ctx := context.Background()

	st.On("UpdateSubmission", ctx, mock.Anything).Return(nil).Once()

	sub, persistence, err := model.UpdateSubmissionStatus(ctx, admin, "sub-1", types.SubmissionStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, types.PersistedRemote, persistence)
	require.NotNil(t, sub.RejectedBy)
	assert.Equal(t, admin.ID, *sub.RejectedBy)
	assert.Nil(t, sub.ApprovedBy)

	logs := mc.State.Snapshot().AuditLogsFor("sub-1")
	require.Len(t, logs, 1)
	assert.Equal(t, types.AuditActionStatusUpdate, logs[0].Action)
	assert.Equal(t, "pending", *logs[0].PreviousValue)
	assert.Equal(t, "rejected", logs[0].NewValue)

	assert.Error(t, CheckReview(admin, sub, types.SubmissionStatusApproved))
	assert.Error(t, CheckReview(staff, &types.Submission{Status: types.SubmissionStatusPending}, types.SubmissionStatusApproved))
	assert.NoError(t, CheckReview(admin, &types.Submission{Status: types.SubmissionStatusPending}, types.SubmissionStatusApproved))
}

func TestListSubmissions(t *testing.T) {
	mc, _ := newTestContext(t)
	seedForm(mc, approvedForm())
	seedForm(mc, &types.Form{ID: "form-2", Title: "Bug Report"})
	for i := 0; i < 12; i++ {
		formID := "form-1"
		if i%3 == 0 {
			formID = "form-2"
		}
		status := types.SubmissionStatusPending
		if i%2 == 0 {
			status = types.SubmissionStatusApproved
		}
		seedSubmission(mc, &types.Submission{
			ID:        fmt.Sprintf("sub-%02d", i),
			FormID:    formID,
			UserID:    fmt.Sprintf("user-%d", i),
			Status:    status,
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		})
	}
	model := NewSubmissionModel(mc)

	tests := []struct {
		name      string
		filter    types.SubmissionFilter
		wantTotal int
		wantFirst string
		wantPage  int
	}{
		{"all newest first", types.SubmissionFilter{}, 12, "sub-11", 1},
		{"by form", types.SubmissionFilter{FormID: "form-2"}, 4, "sub-09", 1},
		{"by status", types.SubmissionFilter{Status: types.SubmissionStatusApproved}, 6, "sub-10", 1},
		{"query matches form title", types.SubmissionFilter{Query: "bug"}, 4, "sub-09", 1},
		{"query matches user", types.SubmissionFilter{Query: "USER-7"}, 1, "sub-07", 1},
		{"page clamps", types.SubmissionFilter{Page: 9, PerPage: 5}, 12, "sub-01", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := model.ListSubmissions(tt.filter)
			assert.Equal(t, tt.wantTotal, page.TotalCount)
			assert.Equal(t, tt.wantPage, page.CurrentPage)
			require.NotEmpty(t, page.Submissions)
			assert.Equal(t, tt.wantFirst, page.Submissions[0].ID)
		})
	}
}

func TestRespondentEmail(t *testing.T) {
	form := approvedForm()
	assert.Equal(t, "a@b.c", RespondentEmail(form, types.FieldValues{"mail": " a@b.c "}))
	assert.Equal(t, "x@y.z", RespondentEmail(form, types.FieldValues{"email": "x@y.z"}))
	assert.Empty(t, RespondentEmail(form, types.FieldValues{"mail": "nope"}))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "Yes", FormatValue(true))
	assert.Equal(t, "a, b", FormatValue([]interface{}{"a", "b"}))
	assert.Equal(t, "3.5", FormatValue(3.5))
	assert.Equal(t, "", FormatValue(nil))
}
