package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/rs/zerolog"
)

var ErrInvalidAddress = errors.New("invalid email address")

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, from string, msg Message) error
}

// Service validates outgoing mail and hands it to the configured transport
type Service struct {
	enabled  bool
	from     string
	provider string
	sender   Sender
	logger   zerolog.Logger
}

// NewService picks a transport from cfg. A disabled config yields a service
// that logs and drops every message.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	svc := &Service{
		enabled:  cfg.Enabled,
		from:     cfg.From,
		provider: cfg.Provider,
		logger:   logger.With().Str("component", "email").Logger(),
	}
	if !cfg.Enabled {
		return svc, nil
	}

	if err := validateEmailAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender email in config: %w", err)
	}

	switch cfg.Provider {
	case "smtp", "":
		svc.provider = "smtp"
		svc.sender = newSMTPSender(cfg)
	case "resend":
		svc.sender = newResendSender(cfg.ResendAPIKey, svc.logger)
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
	return svc, nil
}

// NewServiceWithSender builds an enabled service around an explicit transport.
func NewServiceWithSender(from string, sender Sender, logger zerolog.Logger) *Service {
	return &Service{
		enabled:  true,
		from:     from,
		provider: "custom",
		sender:   sender,
		logger:   logger.With().Str("component", "email").Logger(),
	}
}

func (s *Service) Enabled() bool {
	return s.enabled
}

func (s *Service) Send(ctx context.Context, msg Message) error {
	if err := validateEmailAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("invalid subject: contains newline characters")
	}

	if !s.enabled {
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("email service disabled, skipping message")
		return nil
	}

	if err := s.sender.Send(ctx, s.from, msg); err != nil {
		return fmt.Errorf("send via %s: %w", s.provider, err)
	}

	s.logger.Info().
		Str("to", msg.To).
		Str("provider", s.provider).
		Msg("email sent")
	return nil
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("%w: contains newline characters", ErrInvalidAddress)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return nil
}
