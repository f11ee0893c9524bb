package tilt

import (
	"time"

	"github.com/jmenichole/tiltcheck/internal/alerts"
)

// DefaultCooldown is the minimum gap between alerts for one session.
const DefaultCooldown = 5 * time.Minute

// shouldAlert decides whether a level transition warrants an alert.
// Alerts fire only on upward transitions into a level the user has
// enabled, and never within the cooldown of the session's last alert.
// Downward transitions and same-level updates are silent, so a score
// oscillating around a threshold re-alerts only after it drops a level
// and climbs back (plus cooldown).
func shouldAlert(s *Session, prev, next Level, cfg alerts.Config, now time.Time) bool {
	if !next.Above(prev) {
		return false
	}
	if !cfg.LevelEnabled(string(next)) {
		return false
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if !s.LastAlertAt.IsZero() && now.Sub(s.LastAlertAt) < cooldown {
		return false
	}
	return true
}

// alertMessage renders the human-readable message for a level.
func alertMessage(level Level) string {
	switch level {
	case LevelMedium:
		return "Signs of tilt detected. Keep an eye on your play."
	case LevelHigh:
		return "Elevated tilt detected. Consider taking a short break."
	case LevelCritical:
		return "Critical tilt detected. Step away from the session now."
	default:
		return "Tilt level changed."
	}
}
