package services

import (
	"context"
	"errors"
	"testing"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

func newTestEmailService(t *testing.T) (*EmailService, *mockEmailSender) {
	t.Helper()
	sender := new(mockEmailSender)
	cfg := &config.EmailConfig{
		FromAddress: "forms@example.com",
		FromName:    "FormFlow",
		BaseURL:     "https://forms.example.com/",
	}
	return newEmailService(cfg, sender, prometheus.NewRegistry()), sender
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestEmailService_SendSubmissionConfirmation(t *testing.T) {
	svc, sender := newTestEmailService(t)

	sender.On("Send", mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
		return p.From == "FormFlow <forms@example.com>" &&
			len(p.To) == 1 && p.To[0] == "ada@example.com" &&
			p.Subject == "We received your response to Event Signup" &&
			assert.Contains(t, p.Html, "sub-123") &&
			assert.Contains(t, p.Html, "<strong>Meal</strong></td><td>Veg")
	})).Return(&resend.SendEmailResponse{Id: "email-1"}, nil).Once()

	err := svc.SendSubmissionConfirmation(context.Background(), types.SubmissionConfirmation{
		Email:          "ada@example.com",
		FormTitle:      "Event Signup",
		SubmissionID:   "sub-123",
		SubmissionData: map[string]string{"Meal": "Veg", "Name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, svc.metrics.sentCount.WithLabelValues("confirmation")))
	sender.AssertExpectations(t)
}

func TestEmailService_SendFormInvitation(t *testing.T) {
	svc, sender := newTestEmailService(t)

	sender.On("Send", mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
		return p.To[0] == "guest@example.com" &&
			assert.Contains(t, p.Html, `href="https://forms.example.com/form/event-signup"`)
	})).Return(&resend.SendEmailResponse{Id: "email-2"}, nil).Once()

	err := svc.SendFormInvitation(context.Background(), types.FormInvitation{
		Email: "guest@example.com", FormSlug: "event-signup", FormTitle: "Event Signup",
	})
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestEmailService_Failures(t *testing.T) {
	t.Run("resend error", func(t *testing.T) {
		svc, sender := newTestEmailService(t)
		sender.On("Send", mock.Anything).Return(nil, errors.New("rate limited")).Once()

		err := svc.SendFormInvitation(context.Background(), types.FormInvitation{Email: "a@b.c", FormSlug: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email send failed")
		assert.Equal(t, 1.0, counterValue(t, svc.metrics.errorCount))
	})

	t.Run("missing recipient", func(t *testing.T) {
		svc, sender := newTestEmailService(t)
		err := svc.SendSubmissionConfirmation(context.Background(), types.SubmissionConfirmation{SubmissionID: "s"})
		require.Error(t, err)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc, sender := newTestEmailService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := svc.SendFormInvitation(ctx, types.FormInvitation{Email: "a@b.c", FormSlug: "x"})
		assert.ErrorIs(t, err, context.Canceled)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})
}
