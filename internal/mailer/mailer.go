package mailer

import (
	"context"
	"log/slog"
)

// Mailer delivers transactional email to a recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LoggerMailer is a stub implementation that writes mail to the logger
// instead of an SMTP relay. Used in development and tests.
type LoggerMailer struct {
	logger *slog.Logger
}

// NewLoggerMailer constructs a logging mailer stub.
func NewLoggerMailer(logger *slog.Logger) *LoggerMailer {
	return &LoggerMailer{logger: logger}
}

// Send writes the message to the structured logger.
func (m *LoggerMailer) Send(_ context.Context, to, subject, _ string) error {
	if m == nil || m.logger == nil {
		return nil
	}
	m.logger.Info("mail", "to", to, "subject", subject)
	return nil
}
