package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailAdapter sends alerts over SMTP. net/smtp is deliberately minimal:
// alerts are short plain-text messages and delivery is best-effort.
type EmailAdapter struct {
	addr string // host:port
	from string
	to   []string
}

// NewEmailAdapter creates an SMTP adapter.
func NewEmailAdapter(addr, from string, to ...string) *EmailAdapter {
	return &EmailAdapter{addr: addr, from: from, to: to}
}

func (a *EmailAdapter) Name() string { return "email" }

func (a *EmailAdapter) Send(ctx context.Context, alert *Alert) error {
	msg := strings.Join([]string{
		"From: " + a.from,
		"To: " + strings.Join(a.to, ", "),
		fmt.Sprintf("Subject: TiltCheck %s alert — %s", alert.Level, alert.Platform),
		"",
		fmt.Sprintf("Tilt score reached %.1f (%s) on %s.", alert.Score, alert.Level, alert.Platform),
		fmt.Sprintf("Session: %s", alert.SessionID),
		fmt.Sprintf("Time: %s", alert.At.Format("2006-01-02 15:04:05 MST")),
		"",
		"Consider taking a break.",
	}, "\r\n")

	// smtp.SendMail has no context support; run it in a goroutine and race
	// against ctx so the dispatcher's timeout is honored.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(a.addr, nil, a.from, a.to, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
