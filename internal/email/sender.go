package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Sender sends transactional emails and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Message represents an email to send.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend email sender.
func NewResendSender(apiKey string) *ResendSender {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &ResendSender{client: resend.NewCustomClient(httpClient, apiKey)}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return "", errors.New("resend returned no message id")
	}
	return sent.Id, nil
}

// LogSender logs emails instead of sending them. Used when no email provider
// is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender that only logs messages.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "LogSender").Logger()}
}

func (l *LogSender) Send(_ context.Context, msg Message) (string, error) {
	id := "log-" + uuid.NewString()
	l.logger.Info().
		Str("message_id", id).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email not sent: no provider configured")
	return id, nil
}
