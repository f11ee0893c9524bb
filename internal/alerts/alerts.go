// Package alerts provides risk-escalation alert records and best-effort
// delivery to pluggable notification adapters.
//
// Dispatch is a multicast, not a pipeline: every configured adapter is
// attempted independently, each with its own timeout, and one adapter's
// failure never blocks the others or the caller.
package alerts

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrAlertNotFound is returned when a queried alert does not exist.
	ErrAlertNotFound = errors.New("alerts: not found")
)

// Alert records a risk-level escalation that was dispatched.
// Immutable once recorded.
type Alert struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"sessionId"`
	UserID          string           `json:"userId"`
	Platform        string           `json:"platform"`
	Level           string           `json:"triggeredAtLevel"`
	Score           float64          `json:"tiltScore"`
	Message         string           `json:"message,omitempty"`
	At              time.Time        `json:"timestamp"`
	DispatchResults []DispatchResult `json:"dispatchResults,omitempty"`
}

// DispatchResult is the outcome of one adapter attempt.
type DispatchResult struct {
	Adapter    string `json:"adapter"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Adapter is a pluggable notification channel. Send must respect ctx and
// return promptly on cancellation; the dispatcher enforces a per-call timeout.
type Adapter interface {
	Name() string
	Send(ctx context.Context, alert *Alert) error
}

// Config is the per-user (or default) alerting configuration. Read-only
// during evaluation; loaded at startup and only replaced wholesale.
type Config struct {
	EnabledLevels []string      `json:"enabledLevels"`
	Adapters      []string      `json:"adapters"`
	Cooldown      time.Duration `json:"cooldownMs"`
}

// LevelEnabled reports whether the given risk level should trigger an alert.
func (c Config) LevelEnabled(level string) bool {
	level = strings.ToLower(level)
	for _, l := range c.EnabledLevels {
		if strings.ToLower(l) == level {
			return true
		}
	}
	return false
}

// ConfigSource resolves the alerting configuration for a user.
type ConfigSource interface {
	ConfigFor(userID string) Config
}

// StaticSource is a ConfigSource backed by a default config plus optional
// per-user overrides. Safe for concurrent reads; never mutated after load.
type StaticSource struct {
	Default Config
	PerUser map[string]Config
}

// ConfigFor returns the user's override when present, else the default.
func (s *StaticSource) ConfigFor(userID string) Config {
	if s.PerUser != nil {
		if cfg, ok := s.PerUser[userID]; ok {
			return cfg
		}
	}
	return s.Default
}

// Filter narrows alert-history queries. Zero fields match everything.
type Filter struct {
	SessionID string
	UserID    string
	Platform  string
	Level     string
	Since     time.Time
	Limit     int
}

// Store is the append-only alert log. Record is safe for concurrent calls.
type Store interface {
	Record(ctx context.Context, alert *Alert) error
	List(ctx context.Context, f Filter) ([]*Alert, error)
	LastForSession(ctx context.Context, sessionID string) (*Alert, error)
}
