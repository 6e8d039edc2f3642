package types

import "time"

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	default:
		return false
	}
}

// IsValidTransition allows a single review decision on a pending submission.
func (s SubmissionStatus) IsValidTransition(newStatus SubmissionStatus) bool {
	return s == SubmissionStatusPending &&
		(newStatus == SubmissionStatusApproved || newStatus == SubmissionStatusRejected)
}

func (s SubmissionStatus) String() string {
	return string(s)
}

// MetaKey is the reserved values key carrying the submission metadata envelope.
const MetaKey = "__meta"

// FieldValues maps field ids to string, []string, bool, date string or nil.
type FieldValues map[string]interface{}

// Copy returns a shallow copy of the map.
func (v FieldValues) Copy() FieldValues {
	if v == nil {
		return nil
	}
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// SubmissionMetadata is the envelope attached at final submit.
type SubmissionMetadata struct {
	StartTime  *time.Time `json:"startTime,omitempty"`
	SubmitTime *time.Time `json:"submitTime,omitempty"`
	LastSaved  *time.Time `json:"lastSaved,omitempty"`
}

type Submission struct {
	ID        string              `json:"id"`
	FormID    string              `json:"formId"`
	UserID    string              `json:"userId"`
	Status    SubmissionStatus    `json:"status"`
	Values    FieldValues         `json:"values"`
	Metadata  *SubmissionMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	ReviewStamps
}

// SetStatus applies a review decision with the same stamping rules as forms.
func (s *Submission) SetStatus(status SubmissionStatus, by string, at time.Time) {
	s.Status = status
	s.UpdatedAt = at
	switch status {
	case SubmissionStatusApproved:
		s.MarkApproved(by, at)
	case SubmissionStatusRejected:
		s.MarkRejected(by, at)
	}
}

func (s *Submission) Copy() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	out.Values = s.Values.Copy()
	if s.Metadata != nil {
		meta := *s.Metadata
		out.Metadata = &meta
	}
	return &out
}

// AnonymousUserID stamps submissions made without an authenticated user.
const AnonymousUserID = "anonymous"
