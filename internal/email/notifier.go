package email

import (
	"context"
	"fmt"
	"html/template"

	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/bomanihosts/backend/internal/sanitize"
)

const receivedAtLayout = "2006-01-02 15:04:05 MST"

type contactData struct {
	Name       string
	Email      string
	Phone      string
	Subject    string
	Body       string
	BodyHTML   template.HTML
	ReceivedAt string
}

// ContactNotifier renders and sends the emails that follow a contact form
// submission.
type ContactNotifier struct {
	mail      *Service
	templates *Templates
	admin     string
}

var _ contact.Notifier = (*ContactNotifier)(nil)

func NewContactNotifier(mail *Service, templates *Templates, adminAddress string) *ContactNotifier {
	return &ContactNotifier{mail: mail, templates: templates, admin: adminAddress}
}

func (n *ContactNotifier) AdminAddress() string {
	return n.admin
}

func (n *ContactNotifier) SendConfirmation(ctx context.Context, msg contact.Message) error {
	subject := sanitize.HeaderValue("BomaniHosts - We received your message: " + msg.Subject)
	return n.send(ctx, "confirmation", msg.Email, subject, msg)
}

func (n *ContactNotifier) SendAdminAlert(ctx context.Context, msg contact.Message) error {
	if n.admin == "" {
		return fmt.Errorf("admin address not configured")
	}
	subject := sanitize.HeaderValue("New Contact Form Submission: " + msg.Subject)
	return n.send(ctx, "admin_alert", n.admin, subject, msg)
}

func (n *ContactNotifier) send(ctx context.Context, template, to, subject string, msg contact.Message) error {
	phone := msg.Phone
	if phone == "" {
		phone = "Not provided"
	}
	data := contactData{
		Name:       msg.Name,
		Email:      msg.Email,
		Phone:      phone,
		Subject:    msg.Subject,
		Body:       msg.Body,
		BodyHTML:   sanitize.MultilineHTML(msg.Body),
		ReceivedAt: msg.CreatedAt.UTC().Format(receivedAtLayout),
	}

	text, html, err := n.templates.Render(template, data)
	if err != nil {
		return err
	}
	return n.mail.Send(ctx, Message{To: to, Subject: subject, Text: text, HTML: html})
}
