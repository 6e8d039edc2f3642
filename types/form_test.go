package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormStatus_IsValidTransition(t *testing.T) {
	tests := []struct {
		from, to FormStatus
		want     bool
	}{
		{FormStatusDraft, FormStatusPending, true},
		{FormStatusDraft, FormStatusApproved, false},
		{FormStatusPending, FormStatusApproved, true},
		{FormStatusPending, FormStatusRejected, true},
		{FormStatusPending, FormStatusDraft, false},
		{FormStatusApproved, FormStatusRejected, false},
		{FormStatusRejected, FormStatusPending, false},
		{FormStatus("archived"), FormStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.IsValidTransition(tt.to))
		})
	}
}

func TestSubmissionStatus_IsValidTransition(t *testing.T) {
	assert.True(t, SubmissionStatusPending.IsValidTransition(SubmissionStatusApproved))
	assert.True(t, SubmissionStatusPending.IsValidTransition(SubmissionStatusRejected))
	assert.False(t, SubmissionStatusApproved.IsValidTransition(SubmissionStatusRejected))
	assert.False(t, SubmissionStatusPending.IsValidTransition(SubmissionStatusPending))
}

func TestReviewStamps(t *testing.T) {
	now := time.Now()
	var r ReviewStamps

	r.MarkApproved("admin-1", now)
	assert.Equal(t, "admin-1", *r.ApprovedBy)
	assert.Equal(t, now, *r.ApprovedAt)
	assert.Nil(t, r.RejectedBy)

	r.MarkRejected("admin-2", now.Add(time.Minute))
	assert.Equal(t, "admin-2", *r.RejectedBy)
	assert.Equal(t, "admin-1", *r.ApprovedBy, "approval pair survives a later rejection")
	assert.Equal(t, now, *r.ApprovedAt)
}

func TestForm_SetStatus(t *testing.T) {
	now := time.Now()
	f := &Form{ID: "f1", Status: FormStatusDraft, SubmissionCount: 3}

	f.SetStatus(FormStatusPending, "staff-1", now)
	assert.Equal(t, FormStatusPending, f.Status)
	assert.Equal(t, now, f.UpdatedAt)
	assert.Nil(t, f.ApprovedBy)
	assert.Nil(t, f.RejectedBy)

	f.SetStatus(FormStatusApproved, "admin-1", now)
	require.NotNil(t, f.ApprovedBy)
	assert.Equal(t, "admin-1", *f.ApprovedBy)
	assert.Equal(t, 3, f.SubmissionCount)
}

func TestForm_CopyIsDeep(t *testing.T) {
	f := &Form{ID: "f1", Fields: []FormField{{ID: "a", Type: FieldTypeSelect, Options: []string{"x"}}}}
	c := f.Copy()
	c.Fields[0].Options[0] = "changed"
	c.Fields[0].Label = "changed"

	assert.Equal(t, "x", f.Fields[0].Options[0])
	assert.Empty(t, f.Fields[0].Label)
}

func TestParseUserRole(t *testing.T) {
	assert.Equal(t, UserRoleAdmin, ParseUserRole("ADMIN"))
	assert.Equal(t, UserRoleStaff, ParseUserRole("user"))
	assert.Equal(t, UserRoleStaff, ParseUserRole(""))
}
