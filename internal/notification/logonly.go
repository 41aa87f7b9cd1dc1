package notification

import (
	"context"
	"log/slog"

	"github.com/tphakala/trainwatch-go/internal/logging"
)

// LogTransport writes notifications to the log instead of pushing them.
// Used when push is disabled or no transport credential is configured, so
// the dispatcher pipeline keeps working end to end.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log-only transport.
func NewLogTransport() *LogTransport {
	logger := logging.ForService("notification")
	if logger == nil {
		logger = slog.Default().With("service", "notification")
	}
	return &LogTransport{logger: logger}
}

func (l *LogTransport) Name() string { return "log-only" }

// Send logs the notification and reports success.
func (l *LogTransport) Send(ctx context.Context, target, title, body string) error {
	l.logger.Info("notification (log-only mode)",
		"title", title,
		"body", body,
		"has_target", target != "",
	)
	return nil
}
