// Package notify mails new submissions to the tenant's notification address.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/pkg/types"
)

// ErrNoRecipient is returned when the tenant has no notification address.
var ErrNoRecipient = errors.New("no notification recipient")

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notification is everything the email body shows.
type Notification struct {
	To           string
	BusinessName string
	SubmittedAt  string
	Submission   *types.FormSubmission
}

var submissionTemplate = template.Must(template.New("submission").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>New contact form submission{{if .BusinessName}} for {{.BusinessName}}{{end}}</h2>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><strong>Received</strong></td><td>{{.SubmittedAt}}</td></tr>
    <tr><td><strong>Name</strong></td><td>{{.Submission.FirstName}} {{.Submission.LastName}}</td></tr>
    <tr><td><strong>Email</strong></td><td><a href="mailto:{{.Submission.Email}}">{{.Submission.Email}}</a></td></tr>
    <tr><td><strong>Phone</strong></td><td>{{.Submission.Phone}}</td></tr>
    {{- if .Submission.Reason}}
    <tr><td><strong>Reason</strong></td><td>{{.Submission.Reason}}</td></tr>
    {{- end}}
  </table>
  {{- if .Submission.Message}}
  <h3>Message</h3>
  <p style="white-space: pre-wrap;">{{.Submission.Message}}</p>
  {{- end}}
</body>
</html>
`))

// Mailer renders and sends submission notifications. A Mailer built with a
// nil Sender is disabled and only logs.
type Mailer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// NewMailer builds a Mailer from SMTP settings. Disabled settings yield a
// no-op mailer.
func NewMailer(cfg configtypes.SMTPConfig, logger *zap.Logger) *Mailer {
	if !cfg.Enabled {
		return &Mailer{logger: logger}
	}
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.Sender, logger)
}

func NewMailerWithSender(sender Sender, from string, logger *zap.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, logger: logger}
}

func (m *Mailer) Enabled() bool {
	return m.sender != nil
}

// SendSubmission mails n.Submission to n.To.
func (m *Mailer) SendSubmission(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.To) == "" {
		return ErrNoRecipient
	}
	if !m.Enabled() {
		m.logger.Debug("Email notifications disabled, skipping",
			zap.String("to", n.To),
			zap.String("tenant_id", n.Submission.TenantID))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.compose(n)
	if err != nil {
		return err
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send notification to %s: %w", n.To, err)
	}

	m.logger.Info("Submission notification sent",
		zap.String("to", n.To),
		zap.String("tenant_id", n.Submission.TenantID))
	return nil
}

func (m *Mailer) compose(n Notification) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := submissionTemplate.Execute(&body, n); err != nil {
		return nil, fmt.Errorf("render notification: %w", err)
	}

	subject := "New contact form submission"
	if n.BusinessName != "" {
		subject += " - " + n.BusinessName
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.To)
	msg.SetHeader("Reply-To", n.Submission.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}
