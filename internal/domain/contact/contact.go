package contact

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("contact message not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Message is a persisted contact form submission.
type Message struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Subject    string
	Body       string
	IsResolved bool
	CreatedAt  time.Time
}

// Submission is the untrusted form payload.
type Submission struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,max=254,email"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Subject string `json:"subject" validate:"required,max=300"`
	Message string `json:"message" validate:"required,min=10"`
}

// Normalize trims every field and lowercases the email. It returns a copy.
func (s Submission) Normalize() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.ToLower(strings.TrimSpace(s.Email)),
		Phone:   strings.TrimSpace(s.Phone),
		Subject: strings.TrimSpace(s.Subject),
		Message: strings.TrimSpace(s.Message),
	}
}

type ListFilter struct {
	UnresolvedOnly bool
	Limit          int
}

type Repository interface {
	// Create stores msg and returns it with ID and CreatedAt assigned.
	Create(ctx context.Context, msg Message) (*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	// List returns messages newest first.
	List(ctx context.Context, filter ListFilter) ([]Message, error)
	MarkResolved(ctx context.Context, id int64) error
}

// Notifier delivers the two emails that follow a stored submission.
type Notifier interface {
	SendConfirmation(ctx context.Context, msg Message) error
	SendAdminAlert(ctx context.Context, msg Message) error
	AdminAddress() string
}
