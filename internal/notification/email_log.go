package notification

import (
	"context"
	"log/slog"
)

// logEmailSender writes emails to the log instead of sending them. Used when
// no SMTP host is configured.
type logEmailSender struct {
	log *slog.Logger
}

func NewLogEmailSender(log *slog.Logger) EmailSender {
	return &logEmailSender{log: log}
}

func (s *logEmailSender) Send(_ context.Context, to, subject, _, textBody string) error {
	s.log.Info("DUMMY SEND: email would be sent", "to", to, "subject", subject, "body", textBody)
	return nil
}
