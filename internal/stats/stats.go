// Package stats maintains daily per-platform aggregates. Sessions are
// folded in when they end (eviction), alerts as they fire, so aggregates
// survive session eviction and process restarts when backed by Postgres.
package stats

import (
	"context"
	"time"

	"github.com/jmenichole/tiltcheck/internal/tilt"
)

// DayFormat is the key format for daily buckets, in UTC.
const DayFormat = "2006-01-02"

// Day returns the UTC daily bucket for a timestamp.
func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// DailyStats is one day's aggregate for one platform.
type DailyStats struct {
	Day               string         `json:"day"`
	Platform          string         `json:"platform"`
	Sessions          int            `json:"sessions"`
	Alerts            int            `json:"alerts"`
	AlertsByLevel     map[string]int `json:"alertsByLevel"`
	PeakScore         float64        `json:"peakScore"`
	TotalInteractions int64          `json:"totalInteractions"`
	SignalCounts      map[string]int `json:"signalCounts"`
}

// SessionSummary is the slice of a finished session that folds into a
// daily bucket.
type SessionSummary struct {
	Platform     string
	PeakScore    float64
	Interactions int64
	SignalCounts map[string]int
}

// Store accumulates daily aggregates. All mutations are upserts into the
// (day, platform) bucket.
type Store interface {
	FoldSession(ctx context.Context, day string, sum SessionSummary) error
	CountAlert(ctx context.Context, day, platform, level string) error
	List(ctx context.Context, from, to string) ([]*DailyStats, error)
}

// Recorder adapts engine events into daily-stat mutations. It is the
// Sweeper's OnEvict hook and the dispatch path's alert counter.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// FoldSession folds an evicted session's final state into the bucket of
// the day the session ended.
func (r *Recorder) FoldSession(ctx context.Context, s *tilt.Session) error {
	counts := make(map[string]int, len(s.SignalCounts))
	for k, v := range s.SignalCounts {
		counts[string(k)] = v
	}
	return r.store.FoldSession(ctx, Day(s.LastUpdateTime), SessionSummary{
		Platform:     s.Platform,
		PeakScore:    s.PeakScore,
		Interactions: s.Interactions,
		SignalCounts: counts,
	})
}

// CountAlert counts one fired alert in today's bucket.
func (r *Recorder) CountAlert(ctx context.Context, platform, level string) error {
	return r.store.CountAlert(ctx, Day(r.now()), platform, level)
}
