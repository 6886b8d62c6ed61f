package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

type resendSender struct {
	client *resend.Client
	logger zerolog.Logger
}

func newResendSender(apiKey string, logger zerolog.Logger) *resendSender {
	return &resendSender{
		client: resend.NewClient(apiKey),
		logger: logger,
	}
}

// Send posts the message to the Resend API. Rate limit responses are
// reported, never retried.
func (r *resendSender) Send(ctx context.Context, from string, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := r.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			r.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("remaining", rateLimitErr.Remaining).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded (limit: %s, resets in: %s seconds): %w",
				rateLimitErr.Limit, rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	r.logger.Debug().
		Str("email_id", sent.Id).
		Msg("email accepted by Resend")
	return nil
}
