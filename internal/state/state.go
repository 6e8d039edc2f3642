// Package state holds the in-memory form, submission and audit collections.
//
// State values are immutable snapshots: Reduce never mutates its input and
// always builds new slices, so a snapshot can be read without locking. Entity
// pointers inside a snapshot are shared and must be copied before changes.
package state

import (
	"time"

	"github.com/NomadCrew/formflow-backend/types"
)

// State is a snapshot of the application collections.
type State struct {
	// Forms are kept newest first.
	Forms       []*types.Form
	Submissions []*types.Submission
	AuditLogs   []types.AuditLog
}

// Command is a state change applied by Reduce.
type Command interface {
	apply(State) State
}

// Reduce applies cmd to s and returns the resulting state.
func Reduce(s State, cmd Command) State {
	if cmd == nil {
		return s
	}
	return cmd.apply(s)
}

// Hydrated replaces every collection, e.g. after loading from the store.
type Hydrated struct {
	Forms       []*types.Form
	Submissions []*types.Submission
	AuditLogs   []types.AuditLog
}

func (c Hydrated) apply(State) State {
	next := State{
		Forms:       make([]*types.Form, len(c.Forms)),
		Submissions: make([]*types.Submission, len(c.Submissions)),
		AuditLogs:   append([]types.AuditLog(nil), c.AuditLogs...),
	}
	for i, f := range c.Forms {
		next.Forms[i] = f.Copy()
	}
	for i, sub := range c.Submissions {
		next.Submissions[i] = sub.Copy()
	}
	return next
}

// FormCreated prepends a new form.
type FormCreated struct {
	Form *types.Form
}

func (c FormCreated) apply(s State) State {
	forms := make([]*types.Form, 0, len(s.Forms)+1)
	forms = append(forms, c.Form.Copy())
	forms = append(forms, s.Forms...)
	s.Forms = forms
	return s
}

// FormEdited sets the content of a form on the current entity. Status,
// stamps and the submission count keep whatever the state holds.
type FormEdited struct {
	ID          string
	Title       string
	Description string
	Fields      []types.FormField
	UpdatedAt   time.Time
}

func (c FormEdited) apply(s State) State {
	return patchForm(s, c.ID, func(f *types.Form) {
		edited := (&types.Form{Fields: c.Fields}).Copy()
		f.Title = c.Title
		f.Description = c.Description
		f.Fields = edited.Fields
		f.UpdatedAt = c.UpdatedAt
	})
}

// FormStatusChanged moves a form to Status, stamping By and At on a decision.
type FormStatusChanged struct {
	ID     string
	Status types.FormStatus
	By     string
	At     time.Time
}

func (c FormStatusChanged) apply(s State) State {
	return patchForm(s, c.ID, func(f *types.Form) {
		f.SetStatus(c.Status, c.By, c.At)
	})
}

// patchForm copies the current form with id, applies fn to the copy and
// swaps it in. Unknown ids are ignored.
func patchForm(s State, id string, fn func(*types.Form)) State {
	forms := make([]*types.Form, len(s.Forms))
	copy(forms, s.Forms)
	for i, f := range forms {
		if f.ID == id {
			updated := f.Copy()
			fn(updated)
			forms[i] = updated
		}
	}
	s.Forms = forms
	return s
}

// SubmissionCreated appends a submission and bumps the owning form's count.
type SubmissionCreated struct {
	Submission *types.Submission
}

func (c SubmissionCreated) apply(s State) State {
	subs := make([]*types.Submission, 0, len(s.Submissions)+1)
	subs = append(subs, s.Submissions...)
	subs = append(subs, c.Submission.Copy())
	s.Submissions = subs

	forms := make([]*types.Form, len(s.Forms))
	copy(forms, s.Forms)
	for i, f := range forms {
		if f.ID == c.Submission.FormID {
			updated := f.Copy()
			updated.SubmissionCount++
			forms[i] = updated
		}
	}
	s.Forms = forms
	return s
}

// SubmissionStatusChanged applies a review decision to the current submission.
type SubmissionStatusChanged struct {
	ID     string
	Status types.SubmissionStatus
	By     string
	At     time.Time
}

func (c SubmissionStatusChanged) apply(s State) State {
	subs := make([]*types.Submission, len(s.Submissions))
	copy(subs, s.Submissions)
	for i, sub := range subs {
		if sub.ID == c.ID {
			updated := sub.Copy()
			updated.SetStatus(c.Status, c.By, c.At)
			subs[i] = updated
		}
	}
	s.Submissions = subs
	return s
}

// AuditAppended appends an audit entry. Entries are never removed.
type AuditAppended struct {
	Log types.AuditLog
}

func (c AuditAppended) apply(s State) State {
	logs := make([]types.AuditLog, 0, len(s.AuditLogs)+1)
	logs = append(logs, s.AuditLogs...)
	logs = append(logs, c.Log)
	s.AuditLogs = logs
	return s
}

func (s State) FormByID(id string) (*types.Form, bool) {
	for _, f := range s.Forms {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

func (s State) FormBySlug(slug string) (*types.Form, bool) {
	for _, f := range s.Forms {
		if f.Slug == slug {
			return f, true
		}
	}
	return nil, false
}

// SlugTaken reports whether any form already uses slug.
func (s State) SlugTaken(slug string) bool {
	_, ok := s.FormBySlug(slug)
	return ok
}

func (s State) SubmissionByID(id string) (*types.Submission, bool) {
	for _, sub := range s.Submissions {
		if sub.ID == id {
			return sub, true
		}
	}
	return nil, false
}

// SubmissionCount counts submissions referencing formID.
func (s State) SubmissionCount(formID string) int {
	n := 0
	for _, sub := range s.Submissions {
		if sub.FormID == formID {
			n++
		}
	}
	return n
}

// AuditLogsFor returns the entries for entityID in append order.
func (s State) AuditLogsFor(entityID string) []types.AuditLog {
	var out []types.AuditLog
	for _, l := range s.AuditLogs {
		if l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out
}

// FormTitle returns the title of formID, or "" when unknown.
func (s State) FormTitle(formID string) string {
	if f, ok := s.FormByID(formID); ok {
		return f.Title
	}
	return ""
}

// Stats counts forms and submissions per status.
func (s State) Stats() types.FormStats {
	stats := types.FormStats{
		Forms: map[types.FormStatus]int{
			types.FormStatusDraft: 0, types.FormStatusPending: 0,
			types.FormStatusApproved: 0, types.FormStatusRejected: 0,
		},
		Submissions: map[types.SubmissionStatus]int{
			types.SubmissionStatusPending: 0, types.SubmissionStatusApproved: 0,
			types.SubmissionStatusRejected: 0,
		},
		TotalForms: len(s.Forms),
		TotalSubs:  len(s.Submissions),
	}
	for _, f := range s.Forms {
		stats.Forms[f.Status]++
	}
	for _, sub := range s.Submissions {
		stats.Submissions[sub.Status]++
	}
	return stats
}
