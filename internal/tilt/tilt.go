// Package tilt implements the tilt-scoring engine: sessions accumulate
// weighted behavioral signals into a decaying score in [0, 10], the score
// maps to a risk level, and upward level transitions trigger alerts.
package tilt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmenichole/tiltcheck/internal/signal"
)

var (
	// ErrSessionNotFound is returned when a queried session does not exist.
	ErrSessionNotFound = errors.New("tilt: session not found")
)

// Score bounds. The score is clamped to this range after every mutation.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Level is a risk classification derived from the tilt score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Level thresholds: a score in [0,3) is low, [3,6) medium, [6,8) high,
// [8,10] critical.
const (
	mediumThreshold   = 3.0
	highThreshold     = 6.0
	criticalThreshold = 8.0
)

// LevelForScore maps a clamped score to its risk level.
func LevelForScore(score float64) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ParseLevel converts a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return Level(s), nil
	}
	return "", fmt.Errorf("tilt: unknown level %q", s)
}

// rank orders levels for transition comparison.
func (l Level) rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	}
	return -1
}

// Above reports whether l is a higher risk level than other.
func (l Level) Above(other Level) bool {
	return l.rank() > other.rank()
}

// Session is one user's monitored activity on one platform. A session is
// live while observations keep arriving and is evicted after a period of
// inactivity. Mutations happen only inside the engine, under the per-key
// lock; everything handed out by stores is a snapshot.
type Session struct {
	ID             string              `json:"id"`
	UserID         string              `json:"userId"`
	Platform       string              `json:"platform"`
	StartTime      time.Time           `json:"startTime"`
	LastUpdateTime time.Time           `json:"lastUpdateTime"`
	TiltScore      float64             `json:"tiltScore"`
	PeakScore      float64             `json:"peakScore"`
	RiskLevel      Level               `json:"riskLevel"`
	Interactions   int64               `json:"interactions"`
	SignalCounts   map[signal.Kind]int `json:"signalCounts"`
	LastAlertAt    time.Time           `json:"lastAlertAt,omitempty"`
}

// Clone returns a deep copy safe to hand outside the engine.
func (s *Session) Clone() *Session {
	cp := *s
	cp.SignalCounts = make(map[signal.Kind]int, len(s.SignalCounts))
	for k, v := range s.SignalCounts {
		cp.SignalCounts[k] = v
	}
	return &cp
}

// SessionFilter narrows session listings. Zero fields match everything.
type SessionFilter struct {
	UserID   string
	Platform string
	MinLevel Level
	Limit    int
}

// Store holds live sessions. Save upserts; Active resolves the current
// session for a user/platform pair.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Active(ctx context.Context, userID, platform string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	List(ctx context.Context, f SessionFilter) ([]*Session, error)
	Delete(ctx context.Context, id string) error

	// IdleSince returns sessions whose LastUpdateTime is before cutoff.
	// Used by the eviction sweeper.
	IdleSince(ctx context.Context, cutoff time.Time) ([]*Session, error)
}
