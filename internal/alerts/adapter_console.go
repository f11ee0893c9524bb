package alerts

import (
	"context"
	"log/slog"
)

// ConsoleAdapter writes alerts to the structured log. Always configured in
// development so escalations are visible without any external channel.
type ConsoleAdapter struct {
	logger *slog.Logger
}

// NewConsoleAdapter creates a console adapter.
func NewConsoleAdapter(logger *slog.Logger) *ConsoleAdapter {
	return &ConsoleAdapter{logger: logger}
}

func (a *ConsoleAdapter) Name() string { return "console" }

func (a *ConsoleAdapter) Send(_ context.Context, alert *Alert) error {
	a.logger.Warn("tilt alert",
		"alert", alert.ID,
		"session", alert.SessionID,
		"user", alert.UserID,
		"platform", alert.Platform,
		"level", alert.Level,
		"score", alert.Score,
	)
	return nil
}
