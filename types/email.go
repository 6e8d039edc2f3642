package types

import "context"

type EmailService interface {
	SendSubmissionConfirmation(ctx context.Context, data SubmissionConfirmation) error
	SendFormInvitation(ctx context.Context, data FormInvitation) error
}

// SubmissionConfirmation is sent to a respondent after a successful submit.
type SubmissionConfirmation struct {
	Email          string
	FormTitle      string
	SubmissionID   string
	SubmissionData map[string]string
}

// FormInvitation asks a recipient to fill in a published form.
type FormInvitation struct {
	Email     string
	FormSlug  string
	FormTitle string
}
