package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/telemetry"
	"github.com/bomanihosts/backend/internal/validation"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultNotifyTimeout = 5 * time.Second

const (
	kindConfirmation = "confirmation"
	kindAdminAlert   = "admin_alert"
)

var messageOverrides = validation.Messages{
	"message.min": "Message must be at least 10 characters long.",
}

var errNotifyPanic = errors.New("notifier panicked")

type Service struct {
	repo          Repository
	notifier      Notifier
	validator     *validation.Validator
	notifyTimeout time.Duration
	logger        zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, notifyTimeout time.Duration, logger zerolog.Logger) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		validator:     validation.New(),
		notifyTimeout: notifyTimeout,
		logger:        logger.With().Str("component", "contact").Logger(),
	}
}

// Validate normalizes sub and checks it. It has no side effects.
func (s *Service) Validate(sub Submission) (Submission, error) {
	normalized := sub.Normalize()
	if errs := s.validator.Struct(normalized, messageOverrides); len(errs) > 0 {
		return Submission{}, errs
	}
	return normalized, nil
}

// Submit validates and stores a submission, then attempts both notifications.
// Notification failures never surface to the caller.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Message, error) {
	normalized, err := s.Validate(sub)
	if err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	msg, err := s.repo.Create(ctx, Message{
		Name:    normalized.Name,
		Email:   normalized.Email,
		Phone:   normalized.Phone,
		Subject: normalized.Subject,
		Body:    normalized.Message,
	})
	if err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	metrics.ContactSubmissionsTotal.WithLabelValues("stored").Inc()

	logger := s.loggerFor(ctx)
	logger.Info().
		Int64("contact_id", msg.ID).
		Msg("contact message stored")

	s.attempt(ctx, kindConfirmation, msg.Email, *msg, s.notifier.SendConfirmation)
	s.attempt(ctx, kindAdminAlert, s.notifier.AdminAddress(), *msg, s.notifier.SendAdminAlert)

	return msg, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Message, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Message, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve marks a message handled. Resolving twice is not an error.
func (s *Service) Resolve(ctx context.Context, id int64) error {
	if err := s.repo.MarkResolved(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("contact_id", id).Msg("contact message resolved")
	return nil
}

type sendFunc func(context.Context, Message) error

// attempt runs one notification under its own deadline, detached from the
// request so a client disconnect does not abort delivery. Errors and panics
// are logged and counted, then dropped.
func (s *Service) attempt(ctx context.Context, kind, recipient string, msg Message, send sendFunc) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	attemptCtx, span := telemetry.Tracer("github.com/bomanihosts/backend/internal/domain/contact").
		Start(attemptCtx, "contact.notify."+kind)
	span.SetAttributes(
		attribute.Int64("contact.id", msg.ID),
		attribute.String("notification.kind", kind),
	)
	defer span.End()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("%w: %v", errNotifyPanic, rec)
			}
		}()
		done <- send(attemptCtx, msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-attemptCtx.Done():
		err = attemptCtx.Err()
	}
	metrics.NotificationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
		return
	}

	outcome := "failed"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, errNotifyPanic):
		outcome = "panic"
	}
	metrics.NotificationsTotal.WithLabelValues(kind, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	logger := s.loggerFor(ctx)
	logger.Error().
		Err(err).
		Str("notification", kind).
		Str("recipient", recipient).
		Int64("contact_id", msg.ID).
		Msg("contact notification failed")
}

// loggerFor prefers the request-scoped logger so lines carry the request id.
func (s *Service) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "contact").Logger()
	}
	return s.logger
}
