package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends account lifecycle emails through SendGrid.
type Mailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	return &Mailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	subject := "Thanks for joining in!"
	body := fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	return m.send(ctx, to, name, subject, body)
}

func (m *Mailer) SendCancellation(ctx context.Context, to, name string) error {
	subject := "Sorry to see you go!"
	body := fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name)
	return m.send(ctx, to, name, subject, body)
}

// Send dispatches a queued job to the matching template.
func (m *Mailer) Send(ctx context.Context, job EmailJob) error {
	switch job.Kind {
	case EmailWelcome:
		return m.SendWelcome(ctx, job.To, job.Name)
	case EmailCancellation:
		return m.SendCancellation(ctx, job.To, job.Name)
	default:
		return fmt.Errorf("unknown email kind %q", job.Kind)
	}
}

func (m *Mailer) send(ctx context.Context, to, name, subject, body string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	recipient := mail.NewEmail(name, to)
	message := mail.NewSingleEmail(from, subject, recipient, body, body)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status %d", resp.StatusCode)
	}
	return nil
}
