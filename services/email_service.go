package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

// emailSender is the part of the Resend emails API we use.
type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   *prometheus.CounterVec
}

type EmailService struct {
	config  *config.EmailConfig
	sender  emailSender
	metrics *EmailMetrics
}

var _ types.EmailService = (*EmailService)(nil)

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(submissionConfirmationTemplate))
	invitationTmpl   = template.Must(template.New("invitation").Parse(formInvitationTemplate))
)

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service",
		"from", logger.MaskEmail(cfg.FromAddress), "apikey", logger.MaskSensitiveString(cfg.ResendAPIKey, 3, 0))
	client := resend.NewClient(cfg.ResendAPIKey)
	return newEmailService(cfg, client.Emails, reg)
}

func newEmailService(cfg *config.EmailConfig, sender emailSender, reg prometheus.Registerer) *EmailService {
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "formflow_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formflow_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_emails_sent_total",
			Help: "Total number of emails sent by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		sender:  sender,
		metrics: metrics,
	}
}

type confirmationRow struct {
	Label string
	Value string
}

// SendSubmissionConfirmation thanks a respondent and echoes their answers.
func (s *EmailService) SendSubmissionConfirmation(ctx context.Context, data types.SubmissionConfirmation) error {
	if data.Email == "" || data.SubmissionID == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("confirmation needs an email and a submission id")
	}

	rows := make([]confirmationRow, 0, len(data.SubmissionData))
	for label, value := range data.SubmissionData {
		rows = append(rows, confirmationRow{Label: label, Value: value})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })

	return s.send(ctx, "confirmation", data.Email,
		fmt.Sprintf("We received your response to %s", data.FormTitle),
		confirmationTmpl, map[string]interface{}{
			"FormTitle":    data.FormTitle,
			"SubmissionID": data.SubmissionID,
			"Rows":         rows,
		})
}

// SendFormInvitation links a recipient to an approved form.
func (s *EmailService) SendFormInvitation(ctx context.Context, data types.FormInvitation) error {
	if data.Email == "" || data.FormSlug == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("invitation needs an email and a form slug")
	}
	return s.send(ctx, "invitation", data.Email,
		fmt.Sprintf("You're invited to fill in %s", data.FormTitle),
		invitationTmpl, map[string]interface{}{
			"FormTitle": data.FormTitle,
			"FormURL":   s.PublicFormURL(data.FormSlug),
		})
}

// PublicFormURL is the respondent link for slug.
func (s *EmailService) PublicFormURL(slug string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/form/" + slug
}

func (s *EmailService) send(ctx context.Context, kind, to, subject string, tmpl *template.Template, data interface{}) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		s.metrics.errorCount.Inc()
		return err
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, data); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to execute email template", "kind", kind, "error", err)
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{to},
		Subject: subject,
		Html:    htmlContent.String(),
	}

	if _, err := s.sender.Send(params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"to", logger.MaskEmail(to),
			"subject", subject)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.WithLabelValues(kind).Inc()
	log.Infow("Email sent successfully",
		"to", logger.MaskEmail(to),
		"kind", kind)
	return nil
}

const submissionConfirmationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.FormTitle}}</title>
    <style>
        body { font-family: sans-serif; background-color: #f7f7f7; color: #333333; padding: 20px; }
        .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; padding: 30px; border-radius: 12px; }
        h1 { color: #4F46E5; font-size: 24px; }
        td { padding: 6px 12px; border-bottom: 1px solid #eeeeee; vertical-align: top; }
        .ref { margin-top: 20px; font-size: 13px; color: #777777; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Thanks for your response</h1>
        <p>We received your answers to "{{.FormTitle}}".</p>
        {{if .Rows}}
        <table>
            {{range .Rows}}<tr><td><strong>{{.Label}}</strong></td><td>{{.Value}}</td></tr>
            {{end}}
        </table>
        {{end}}
        <p class="ref">Reference: {{.SubmissionID}}</p>
    </div>
</body>
</html>`

const formInvitationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.FormTitle}}</title>
    <style>
        body { font-family: sans-serif; background-color: #f7f7f7; color: #333333; padding: 20px; text-align: center; }
        .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; padding: 30px; border-radius: 12px; }
        .button { display: inline-block; padding: 12px 24px; font-weight: bold; text-decoration: none; background-color: #4F46E5; color: #ffffff; border-radius: 8px; }
        .link { margin-top: 20px; font-size: 14px; color: #777777; word-break: break-all; }
    </style>
</head>
<body>
    <div class="container">
        <h1>You're invited</h1>
        <p>Please take a moment to fill in "{{.FormTitle}}".</p>
        <p><a href="{{.FormURL}}" class="button">Open the form</a></p>
        <p class="link">Or copy this link:<br/>{{.FormURL}}</p>
    </div>
</body>
</html>`
