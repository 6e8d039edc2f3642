package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testForm(id, slug string) *types.Form {
	return &types.Form{
		ID:        id,
		Title:     "Form " + id,
		Slug:      slug,
		Status:    types.FormStatusDraft,
		Fields:    []types.FormField{{ID: id + "-f1", Type: types.FieldTypeText, Label: "Name"}},
		CreatedAt: time.Now(),
	}
}

func TestReduce_FormCreatedPrependsAndCopies(t *testing.T) {
	s := Reduce(State{}, FormCreated{Form: testForm("a", "a")})
	input := testForm("b", "b")
	next := Reduce(s, FormCreated{Form: input})

	require.Len(t, next.Forms, 2)
	assert.Equal(t, "b", next.Forms[0].ID)
	assert.Equal(t, "a", next.Forms[1].ID)
	assert.Len(t, s.Forms, 1, "previous snapshot untouched")

	input.Title = "mutated after dispatch"
	assert.Equal(t, "Form b", next.Forms[0].Title)
}

func TestReduce_FormStatusChanged(t *testing.T) {
	s := Reduce(State{}, FormCreated{Form: testForm("a", "a")})
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	next := Reduce(s, FormStatusChanged{ID: "a", Status: types.FormStatusApproved, By: "admin-1", At: at})
	assert.Equal(t, types.FormStatusApproved, next.Forms[0].Status)
	require.NotNil(t, next.Forms[0].ApprovedBy)
	assert.Equal(t, "admin-1", *next.Forms[0].ApprovedBy)
	assert.Equal(t, at, next.Forms[0].UpdatedAt)
	assert.Equal(t, types.FormStatusDraft, s.Forms[0].Status, "previous snapshot untouched")

	unchanged := Reduce(next, FormStatusChanged{ID: "zzz", Status: types.FormStatusPending})
	assert.Len(t, unchanged.Forms, 1)
}

func TestReduce_FormEditedKeepsCountAndStatus(t *testing.T) {
	s := Reduce(State{}, FormCreated{Form: testForm("a", "a")})
	s = Reduce(s, SubmissionCreated{Submission: &types.Submission{ID: "s1", FormID: "a"}})
	fields := []types.FormField{{ID: "q", Type: types.FieldTypeSelect, Label: "Pick", Options: []string{"x"}}}

	next := Reduce(s, FormEdited{ID: "a", Title: "Renamed", Fields: fields})
	fields[0].Options[0] = "mutated after dispatch"

	f, _ := next.FormByID("a")
	assert.Equal(t, "Renamed", f.Title)
	assert.Equal(t, "x", f.Fields[0].Options[0])
	assert.Equal(t, types.FormStatusDraft, f.Status)
	assert.Equal(t, 1, f.SubmissionCount)
}

// Status and count changes touch disjoint fields, so interleaving them in
// any order keeps every submission counted.
func TestManager_ConcurrentStatusAndSubmissions(t *testing.T) {
	m := NewManager()
	m.Dispatch(FormCreated{Form: testForm("a", "a")})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			m.Dispatch(SubmissionCreated{Submission: &types.Submission{ID: "s" + string(rune('A'+i)), FormID: "a"}})
		}(i)
		go func() {
			defer wg.Done()
			m.Dispatch(FormStatusChanged{ID: "a", Status: types.FormStatusPending})
		}()
	}
	wg.Wait()

	f, _ := m.Snapshot().FormByID("a")
	assert.Equal(t, 50, f.SubmissionCount)
	assert.Equal(t, m.Snapshot().SubmissionCount("a"), f.SubmissionCount)
}

func TestReduce_SubmissionStatusChanged(t *testing.T) {
	s := Reduce(State{}, SubmissionCreated{Submission: &types.Submission{ID: "s1", FormID: "a", Status: types.SubmissionStatusPending}})
	next := Reduce(s, SubmissionStatusChanged{ID: "s1", Status: types.SubmissionStatusRejected, By: "admin-1", At: time.Now()})

	sub, _ := next.SubmissionByID("s1")
	assert.Equal(t, types.SubmissionStatusRejected, sub.Status)
	require.NotNil(t, sub.RejectedBy)
	old, _ := s.SubmissionByID("s1")
	assert.Equal(t, types.SubmissionStatusPending, old.Status)
}

func TestReduce_SubmissionCreatedKeepsCountInSync(t *testing.T) {
	s := Reduce(State{}, FormCreated{Form: testForm("a", "a")})
	s = Reduce(s, FormCreated{Form: testForm("b", "b")})

	for i := 0; i < 3; i++ {
		s = Reduce(s, SubmissionCreated{Submission: &types.Submission{ID: string(rune('x' + i)), FormID: "a"}})
	}
	s = Reduce(s, SubmissionCreated{Submission: &types.Submission{ID: "orphan", FormID: "missing"}})

	for _, f := range s.Forms {
		assert.Equal(t, s.SubmissionCount(f.ID), f.SubmissionCount, f.ID)
	}
	a, _ := s.FormByID("a")
	assert.Equal(t, 3, a.SubmissionCount)
}

func TestReduce_AuditAppendedIsAppendOnly(t *testing.T) {
	s := Reduce(State{}, AuditAppended{Log: types.AuditLog{ID: "1", EntityID: "a"}})
	s2 := Reduce(s, AuditAppended{Log: types.AuditLog{ID: "2", EntityID: "b"}})
	s3 := Reduce(s2, AuditAppended{Log: types.AuditLog{ID: "3", EntityID: "a"}})

	assert.Len(t, s.AuditLogs, 1)
	logs := s3.AuditLogsFor("a")
	require.Len(t, logs, 2)
	assert.Equal(t, "1", logs[0].ID)
	assert.Equal(t, "3", logs[1].ID)
}

func TestState_Lookups(t *testing.T) {
	s := Reduce(State{}, Hydrated{
		Forms:       []*types.Form{testForm("a", "alpha"), testForm("b", "beta")},
		Submissions: []*types.Submission{{ID: "s1", FormID: "a", Status: types.SubmissionStatusPending}},
	})

	f, ok := s.FormBySlug("beta")
	require.True(t, ok)
	assert.Equal(t, "b", f.ID)
	assert.True(t, s.SlugTaken("alpha"))
	assert.False(t, s.SlugTaken("gamma"))
	assert.Equal(t, "Form a", s.FormTitle("a"))
	assert.Equal(t, "", s.FormTitle("nope"))

	sub, ok := s.SubmissionByID("s1")
	require.True(t, ok)
	assert.Equal(t, "a", sub.FormID)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Forms[types.FormStatusDraft])
	assert.Equal(t, 0, stats.Forms[types.FormStatusApproved])
	assert.Equal(t, 1, stats.Submissions[types.SubmissionStatusPending])
	assert.Equal(t, 2, stats.TotalForms)
}

func TestManager_UpdateIsAtomic(t *testing.T) {
	m := NewManager()
	m.Dispatch(FormCreated{Form: testForm("a", "a")})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Update(func(s State) ([]Command, error) {
				return []Command{SubmissionCreated{Submission: &types.Submission{ID: time.Now().String(), FormID: "a"}}}, nil
			})
		}(i)
	}
	wg.Wait()

	f, _ := m.Snapshot().FormByID("a")
	assert.Equal(t, 50, f.SubmissionCount)
	assert.Len(t, m.Snapshot().Submissions, 50)
}

func TestManager_UpdateErrorAppliesNothing(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")

	_, err := m.Update(func(s State) ([]Command, error) {
		return []Command{FormCreated{Form: testForm("a", "a")}}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.Snapshot().Forms)
}
